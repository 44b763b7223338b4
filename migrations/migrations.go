// Package migrations 内嵌各数据库方言的建表脚本，供 cmd/migrate 使用。
package migrations

import (
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strings"
)

//go:embed postgres/*.sql mysql/*.sql
var files embed.FS

// Dialects 支持的数据库方言
var Dialects = []string{"postgres", "mysql"}

// Normalize 将 postgresql 归一为 postgres，其它方言原样返回（小写）
func Normalize(dialect string) string {
	d := strings.ToLower(strings.TrimSpace(dialect))
	if d == "postgresql" {
		return "postgres"
	}
	return d
}

// Scripts 按版本顺序返回某方言在指定方向（up/down）上的脚本文件名。
// down 方向按版本倒序返回。
func Scripts(dialect, action string) ([]string, error) {
	dialect = Normalize(dialect)
	if action != "up" && action != "down" {
		return nil, fmt.Errorf("unsupported action %q", action)
	}
	entries, err := fs.ReadDir(files, dialect)
	if err != nil {
		return nil, fmt.Errorf("unsupported database type %q", dialect)
	}

	suffix := "." + action + ".sql"
	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), suffix) {
			names = append(names, dialect+"/"+e.Name())
		}
	}
	sort.Strings(names)
	if action == "down" {
		sort.Sort(sort.Reverse(sort.StringSlice(names)))
	}
	return names, nil
}

// Read 读取内嵌脚本内容
func Read(name string) (string, error) {
	content, err := files.ReadFile(name)
	if err != nil {
		return "", err
	}
	return string(content), nil
}
