package main

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"

	"studydesk/backend/internal/portal"
)

const (
	keyringService = "studydesk-ddlsync"
	keyringUser    = "portal"
)

var errNoCredentials = errors.New("未找到教学网凭证，请先执行 ddlsync login 或通过参数提供")

type storedCredentials struct {
	Username string `json:"username,omitempty"`
	Password string `json:"password,omitempty"`
	Cookie   string `json:"cookie,omitempty"`
}

func saveCredentials(c storedCredentials) error {
	raw, err := json.Marshal(c)
	if err != nil {
		return err
	}
	if err := keyring.Set(keyringService, keyringUser, string(raw)); err != nil {
		return fmt.Errorf("写入系统钥匙串失败: %w", err)
	}
	return nil
}

// loadCredentials 钥匙串中无记录时返回零值
func loadCredentials() (storedCredentials, error) {
	var c storedCredentials
	raw, err := keyring.Get(keyringService, keyringUser)
	if errors.Is(err, keyring.ErrNotFound) {
		return c, nil
	}
	if err != nil {
		return c, fmt.Errorf("读取系统钥匙串失败: %w", err)
	}
	if err := json.Unmarshal([]byte(raw), &c); err != nil {
		return c, fmt.Errorf("钥匙串中的凭证已损坏: %w", err)
	}
	return c, nil
}

func deleteCredentials() error {
	err := keyring.Delete(keyringService, keyringUser)
	if err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return err
	}
	return nil
}

// resolveCredentials 命令行参数优先，其次钥匙串；参数完整时不访问钥匙串
func resolveCredentials(flags storedCredentials) (portal.Credentials, error) {
	if flags.Cookie != "" {
		return portal.Credentials{Cookie: flags.Cookie}, nil
	}
	if flags.Username != "" && flags.Password != "" {
		return portal.Credentials{Username: flags.Username, Password: flags.Password}, nil
	}
	stored, err := loadCredentials()
	if err != nil {
		return portal.Credentials{}, err
	}
	if stored.Cookie == "" && (stored.Username == "" || stored.Password == "") {
		return portal.Credentials{}, errNoCredentials
	}
	return portal.Credentials{
		Username: stored.Username,
		Password: stored.Password,
		Cookie:   stored.Cookie,
	}, nil
}
