package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/urfave/cli"
	"go.uber.org/zap"

	"studydesk/backend/config"
	"studydesk/backend/internal/ddl"
	"studydesk/backend/internal/portal"
	applogger "studydesk/backend/pkg/logger"
)

var (
	configFlag = cli.StringFlag{
		Name:   "config, c",
		Usage:  "配置文件路径",
		EnvVar: "STUDYDESK_CONFIG",
	}
	verboseFlag = cli.BoolFlag{
		Name:  "verbose, v",
		Usage: "输出调试日志",
	}
	credentialFlags = []cli.Flag{
		cli.StringFlag{Name: "username, u", Usage: "教学网账号（学号）"},
		cli.StringFlag{Name: "password, p", Usage: "教学网密码", EnvVar: "STUDYDESK_PORTAL_PASSWORD"},
		cli.StringFlag{Name: "cookie", Usage: "浏览器导出的教学网 Cookie", EnvVar: "STUDYDESK_PORTAL_COOKIE"},
	}
)

func newApp() *cli.App {
	app := cli.NewApp()
	app.Name = "ddlsync"
	app.HelpName = "ddlsync"
	app.Usage = "抓取教学网作业并整理为 DDL 列表"
	app.UsageText = "ddlsync <command> [arguments...]"
	app.Version = version
	app.Flags = []cli.Flag{configFlag, verboseFlag}
	app.Commands = []cli.Command{
		{
			Name:   "login",
			Usage:  "将教学网凭证保存到系统钥匙串",
			Flags:  credentialFlags,
			Action: login,
		},
		{
			Name:   "logout",
			Usage:  "从系统钥匙串删除教学网凭证",
			Action: logout,
		},
		{
			Name:   "courses",
			Usage:  "列出当前学期课程",
			Flags:  credentialFlags,
			Action: courses,
		},
		{
			Name:      "run",
			Usage:     "抓取作业、调用大模型整理，输出 DDL payload",
			UsageText: "ddlsync run --user-id <id> [--out file] [--push http://host:8080 --token <access token>]",
			Flags: append([]cli.Flag{
				cli.StringFlag{Name: "user-id", Usage: "写入 payload 的 userId", Value: "local"},
				cli.StringFlag{Name: "out, o", Usage: "输出文件，默认标准输出"},
				cli.StringFlag{Name: "push", Usage: "StudyDesk 服务地址，提供时将结果同步到服务端"},
				cli.StringFlag{Name: "token", Usage: "服务端 access token", EnvVar: "STUDYDESK_TOKEN"},
			}, credentialFlags...),
			Action: run,
		},
	}
	return app
}

// ── login / logout ──

func login(ctx *cli.Context) error {
	creds := credentialsFromFlags(ctx)
	if creds.Cookie == "" {
		if creds.Username == "" {
			return cli.NewExitError("请通过 --username 提供账号，或通过 --cookie 提供 Cookie", 2)
		}
		if creds.Password == "" {
			pw, err := promptLine(ctx.App.Writer, os.Stdin, "密码: ")
			if err != nil {
				return err
			}
			creds.Password = pw
		}
	}
	if err := saveCredentials(creds); err != nil {
		return err
	}
	fmt.Fprintln(ctx.App.Writer, "凭证已保存")
	return nil
}

func logout(ctx *cli.Context) error {
	if err := deleteCredentials(); err != nil {
		return err
	}
	fmt.Fprintln(ctx.App.Writer, "凭证已删除")
	return nil
}

// ── courses ──

func courses(ctx *cli.Context) error {
	env, err := setup(ctx)
	if err != nil {
		return err
	}
	defer env.logger.Sync()

	c, cancel := signalContext()
	defer cancel()

	sess, err := env.acquire(c, ctx)
	if err != nil {
		return err
	}
	list := portal.NewScraper(&env.cfg.Portal, env.logger).ListCurrentCourses(c, sess)
	if len(list) == 0 {
		return cli.NewExitError("未找到当前学期课程", 1)
	}
	for _, course := range list {
		fmt.Fprintf(ctx.App.Writer, "%3d  %s\n", course.ID, course.Name)
	}
	return nil
}

// ── run ──

func run(ctx *cli.Context) error {
	env, err := setup(ctx)
	if err != nil {
		return err
	}
	defer env.logger.Sync()

	if env.cfg.LLM.APIKey == "" {
		return cli.NewExitError("未配置 llm.api_key（可通过 STUDYDESK_LLM_API_KEY 设置）", 2)
	}
	if ctx.String("push") != "" && ctx.String("token") == "" {
		return cli.NewExitError("--push 需要同时提供 --token", 2)
	}

	c, cancel := signalContext()
	defer cancel()

	sess, err := env.acquire(c, ctx)
	if err != nil {
		return err
	}

	scraper := portal.NewScraper(&env.cfg.Portal, env.logger)
	normalizer := ddl.NewNormalizer(ddl.NewChatClient(&env.cfg.LLM), &env.cfg.LLM, env.logger)
	payload, stats := ddl.NewPipeline(scraper, normalizer).Run(c, sess, ctx.String("user-id"))

	env.logger.Info("抓取完成",
		zap.Int("courses", stats.Courses),
		zap.Int("raw_items", stats.RawItems),
		zap.Int("deadlines", stats.Deadlines),
	)

	if err := writePayload(ctx, payload); err != nil {
		return err
	}

	if base := ctx.String("push"); base != "" {
		n, err := pushPayload(c, http.DefaultClient, base, ctx.String("token"), payload)
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "已同步到服务端，共 %d 条\n", n)
	}
	return nil
}

func writePayload(ctx *cli.Context, payload ddl.DeadlinePayload) error {
	raw, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return err
	}
	raw = append(raw, '\n')

	if out := ctx.String("out"); out != "" {
		return os.WriteFile(out, raw, 0o600)
	}
	_, err = ctx.App.Writer.Write(raw)
	return err
}

// pushPayload 调用 PUT /api/v1/tasks/bulk 全量替换服务端任务，返回写入条数
func pushPayload(ctx context.Context, client *http.Client, base, token string, payload ddl.DeadlinePayload) (int, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return 0, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, strings.TrimRight(base, "/")+"/api/v1/tasks/bulk", bytes.NewReader(body))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("请求服务端失败: %w", err)
	}
	defer resp.Body.Close()

	var result struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Data    struct {
			Replaced int `json:"replaced"`
		} `json:"data"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&result); err != nil {
		return 0, fmt.Errorf("服务端响应无法解析 (HTTP %d): %w", resp.StatusCode, err)
	}
	if resp.StatusCode != http.StatusOK || result.Code != 0 {
		return 0, fmt.Errorf("服务端拒绝 (HTTP %d, code %d): %s", resp.StatusCode, result.Code, result.Message)
	}
	return result.Data.Replaced, nil
}

// ── 公共 ──

type runEnv struct {
	cfg    *config.Config
	logger *zap.Logger
}

func setup(ctx *cli.Context) (*runEnv, error) {
	cfg, err := config.LoadPipeline(ctx.GlobalString("config"))
	if err != nil {
		return nil, err
	}
	cfg.Log.Format = "console"
	if ctx.GlobalBool("verbose") {
		cfg.Log.Level = "debug"
	}
	logger, err := applogger.NewLogger(&cfg.Log)
	if err != nil {
		return nil, err
	}
	return &runEnv{cfg: cfg, logger: logger}, nil
}

func (e *runEnv) acquire(c context.Context, ctx *cli.Context) (portal.Session, error) {
	creds, err := resolveCredentials(credentialsFromFlags(ctx))
	if err != nil {
		return nil, cli.NewExitError(err.Error(), 2)
	}
	sess, err := portal.NewAutoAcquirer(&e.cfg.Portal, e.logger).Acquire(c, creds)
	if errors.Is(err, portal.ErrAuthFailed) {
		return nil, cli.NewExitError("教学网登录失败，请检查账号密码或 Cookie", 3)
	}
	return sess, err
}

func credentialsFromFlags(ctx *cli.Context) storedCredentials {
	return storedCredentials{
		Username: ctx.String("username"),
		Password: ctx.String("password"),
		Cookie:   ctx.String("cookie"),
	}
}

func promptLine(w io.Writer, r io.Reader, prompt string) (string, error) {
	fmt.Fprint(w, prompt)
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return "", cli.NewExitError("密码不能为空", 2)
	}
	return line, nil
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	ctx, cancel := context.WithTimeout(ctx, 30*time.Minute)
	return ctx, func() {
		cancel()
		stop()
	}
}
