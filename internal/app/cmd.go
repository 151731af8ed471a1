package app

// Command はアプリケーションの起動モードを表す。
type Command string

const (
	// CommandServe はルートサーフェスのHTTPサーバーとして起動することを示す。
	CommandServe Command = "serve"
	// CommandWhoami は現在ユーザーを読み込んで表示することを示す。
	CommandWhoami Command = "whoami"
	// CommandLogs はセッション履歴を表示することを示す。
	CommandLogs Command = "logs"
	// CommandLogout はログアウトしてクレデンシャルを破棄することを示す。
	CommandLogout Command = "logout"
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
	case "serve":
		return CommandServe
	case "whoami":
		return CommandWhoami
	case "logs":
		return CommandLogs
	case "logout":
		return CommandLogout
	case "healthcheck":
		return CommandHealthcheck
	default:
		return CommandServe
	}
}
