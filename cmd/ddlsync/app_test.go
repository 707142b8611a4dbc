package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/urfave/cli"
	"github.com/zalando/go-keyring"

	"studydesk/backend/internal/ddl"
)

func newTestApp() (*cli.App, *bytes.Buffer) {
	var out bytes.Buffer
	app := newApp()
	app.Writer = &out
	app.ErrWriter = &out
	return app, &out
}

func TestLogin_SavesToKeyring(t *testing.T) {
	keyring.MockInit()

	app, out := newTestApp()
	if err := app.Run([]string{"ddlsync", "login", "--username", "2200011085", "--password", "secret"}); err != nil {
		t.Fatalf("login 失败: %v", err)
	}
	if !strings.Contains(out.String(), "凭证已保存") {
		t.Errorf("输出缺少提示: %q", out.String())
	}

	creds, err := resolveCredentials(storedCredentials{})
	if err != nil {
		t.Fatalf("resolveCredentials 失败: %v", err)
	}
	if creds.Username != "2200011085" || creds.Password != "secret" {
		t.Errorf("期望读出保存的账号密码，实际 %+v", creds)
	}
}

func TestLogin_MissingUsername(t *testing.T) {
	keyring.MockInit()
	orig := cli.OsExiter
	cli.OsExiter = func(int) {}
	defer func() { cli.OsExiter = orig }()

	app, _ := newTestApp()
	if err := app.Run([]string{"ddlsync", "login"}); err == nil {
		t.Error("缺少账号时应返回错误")
	}
}

func TestLogout(t *testing.T) {
	keyring.MockInit()
	if err := saveCredentials(storedCredentials{Cookie: "s_session_id=abc"}); err != nil {
		t.Fatalf("saveCredentials 失败: %v", err)
	}

	app, _ := newTestApp()
	if err := app.Run([]string{"ddlsync", "logout"}); err != nil {
		t.Fatalf("logout 失败: %v", err)
	}
	if _, err := resolveCredentials(storedCredentials{}); !errors.Is(err, errNoCredentials) {
		t.Errorf("删除后期望 errNoCredentials，实际 %v", err)
	}
	// 重复删除不报错
	if err := deleteCredentials(); err != nil {
		t.Errorf("重复删除应成功，实际 %v", err)
	}
}

func TestResolveCredentials_FlagsWin(t *testing.T) {
	keyring.MockInit()
	saveCredentials(storedCredentials{Username: "stored", Password: "stored-pw"})

	creds, err := resolveCredentials(storedCredentials{Cookie: "a=1; b=2"})
	if err != nil {
		t.Fatalf("resolveCredentials 失败: %v", err)
	}
	if creds.Cookie != "a=1; b=2" || creds.Username != "" {
		t.Errorf("Cookie 参数应优先，实际 %+v", creds)
	}

	creds, _ = resolveCredentials(storedCredentials{Username: "flag", Password: "flag-pw"})
	if creds.Username != "flag" {
		t.Errorf("账号参数应优先，实际 %+v", creds)
	}

	// 只给账号不给密码时回退到钥匙串
	creds, _ = resolveCredentials(storedCredentials{Username: "flag"})
	if creds.Username != "stored" {
		t.Errorf("参数不完整时应使用钥匙串，实际 %+v", creds)
	}
}

func TestResolveCredentials_Corrupted(t *testing.T) {
	keyring.MockInit()
	keyring.Set(keyringService, keyringUser, "not json")

	if _, err := resolveCredentials(storedCredentials{}); err == nil {
		t.Error("钥匙串内容损坏时应返回错误")
	}
}

func TestPushPayload(t *testing.T) {
	var gotAuth, gotMethod, gotPath string
	var got ddl.DeadlinePayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotMethod = r.Method
		gotPath = r.URL.Path
		json.NewDecoder(r.Body).Decode(&got)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"code":0,"message":"success","data":{"replaced":1}}`))
	}))
	defer srv.Close()

	deadline := "2026-11-03 23:59"
	payload := ddl.DeadlinePayload{
		UserID:    "u1",
		Deadlines: []ddl.DeadlineRecord{{Name: "作业1", Deadline: &deadline, Status: ddl.StatusUrgent}},
	}
	n, err := pushPayload(context.Background(), srv.Client(), srv.URL+"/", "tok", payload)
	if err != nil {
		t.Fatalf("pushPayload 失败: %v", err)
	}
	if n != 1 {
		t.Errorf("期望写入 1 条，实际 %d", n)
	}
	if gotMethod != http.MethodPut || gotPath != "/api/v1/tasks/bulk" {
		t.Errorf("请求错误: %s %s", gotMethod, gotPath)
	}
	if gotAuth != "Bearer tok" {
		t.Errorf("Authorization 错误: %s", gotAuth)
	}
	if got.UserID != "u1" || len(got.Deadlines) != 1 {
		t.Errorf("payload 未正确发送: %+v", got)
	}
}

func TestPushPayload_Rejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"code":13003,"message":"payload 的 userId 与当前用户不一致"}`))
	}))
	defer srv.Close()

	_, err := pushPayload(context.Background(), srv.Client(), srv.URL, "tok", ddl.DeadlinePayload{UserID: "x"})
	if err == nil || !strings.Contains(err.Error(), "13003") {
		t.Errorf("期望包含错误码的错误，实际 %v", err)
	}
}

func TestPromptLine(t *testing.T) {
	var w bytes.Buffer
	got, err := promptLine(&w, strings.NewReader("  pw123 \n"), "密码: ")
	if err != nil || got != "pw123" {
		t.Errorf("期望 pw123，实际 %q (%v)", got, err)
	}
	if w.String() != "密码: " {
		t.Errorf("提示输出错误: %q", w.String())
	}

	if _, err := promptLine(&w, strings.NewReader("\n"), ""); err == nil {
		t.Error("空输入应返回错误")
	}
}
