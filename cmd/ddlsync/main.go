// ddlsync 命令行工具：在本地登录教学网，抓取作业并整理为 DDL 列表
package main

import (
	"fmt"
	"os"
)

var version = "dev"

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
