// Command plantshop は植物ショップのAPIサーバー、ワーカー、運用コマンドを提供する。
//
//	plantshop [serve]                         APIサーバーを起動する
//	plantshop worker                          失効トークンの定期クリーンアップを実行する
//	plantshop migrate                         データベースマイグレーションを適用する
//	plantshop promote <email> [admin|customer] ユーザーのロールを変更する
//	plantshop healthcheck                     /healthを確認する（Dockerヘルスチェック用）
package main

import (
	"fmt"
	"os"

	"github.com/hitoshi/plantshop/internal/app"
)

func main() {
	if err := app.Run(os.Stdout, os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
