package app

// Command は単一バイナリの起動モードを表す。
type Command string

const (
	// CommandServe はHTTP APIサーバーとして起動する。
	CommandServe Command = "serve"
	// CommandWorker はニュース取得などのバックグラウンドワーカーとして起動する。
	CommandWorker Command = "worker"
	// CommandMigrate はスキーママイグレーションを適用して終了する。
	CommandMigrate Command = "migrate"
	// CommandHealthcheck は/healthを叩いて終了コードで結果を返す。
	// distrolessイメージにはcurlがないため、Dockerヘルスチェックはこのモードを使う。
	CommandHealthcheck Command = "healthcheck"
)

// ParseCommand は起動引数からサブコマンドを決定する。
// 引数なし、または未知のサブコマンドはserveとして扱う。
func ParseCommand(args []string) Command {
	if len(args) == 0 {
		return CommandServe
	}

	switch args[0] {
	case "serve":
		return CommandServe
	case "worker":
		return CommandWorker
	case "migrate":
		return CommandMigrate
	case "healthcheck":
		return CommandHealthcheck
	default:
		return CommandServe
	}
}
