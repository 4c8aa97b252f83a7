package app

import (
	"fmt"

	"github.com/hitoshi/plantshop/internal/model"
)

// Command はアプリケーションの起動モードを表す。
type Command string

const (
	// CommandServe はAPIサーバーモードで起動することを示す。
	CommandServe Command = "serve"
	// CommandWorker はワーカーモードで起動することを示す。
	CommandWorker Command = "worker"
	// CommandMigrate はデータベースマイグレーションを実行することを示す。
	CommandMigrate Command = "migrate"
	// CommandPromote はユーザーのロールを変更することを示す。
	CommandPromote Command = "promote"
	// CommandHealthcheck はヘルスチェックを実行することを示す。
	// distroless環境でのDockerヘルスチェック用。
	CommandHealthcheck Command = "healthcheck"
)

// ParseCommand はコマンドライン引数からサブコマンドを解析する。
// 引数が空またはサポート外のコマンドの場合はCommandServeを返す。
func ParseCommand(args []string) Command {
	if len(args) == 0 {
		return CommandServe
	}

	switch args[0] {
	case "worker":
		return CommandWorker
	case "serve":
		return CommandServe
	case "migrate":
		return CommandMigrate
	case "promote":
		return CommandPromote
	case "healthcheck":
		return CommandHealthcheck
	default:
		return CommandServe
	}
}

// PromoteArgs はpromoteサブコマンドの引数。
type PromoteArgs struct {
	Email string
	Role  model.Role
}

// ParsePromoteArgs は "promote <email> [admin|customer]" を解析する。
// ロール省略時はadmin。
func ParsePromoteArgs(args []string) (PromoteArgs, error) {
	if len(args) < 2 || args[1] == "" {
		return PromoteArgs{}, fmt.Errorf("usage: promote <email> [admin|customer]")
	}

	role := model.RoleAdmin
	if len(args) >= 3 {
		role = model.Role(args[2])
	}
	if !role.Valid() {
		return PromoteArgs{}, fmt.Errorf("unknown role %q: must be admin or customer", args[2])
	}
	return PromoteArgs{Email: args[1], Role: role}, nil
}
