package app

// Command はcookingstoreバイナリのサブコマンド。
type Command string

const (
	// CommandServe はBFFサーバーを起動する。
	CommandServe Command = "serve"
	// CommandWorker は期限切れセッションと使用済み認可コードの定期削除を行う。
	CommandWorker Command = "worker"
	// CommandMigrate は埋め込みマイグレーションを適用して終了する。
	CommandMigrate Command = "migrate"
	// CommandHealthcheck は/healthを叩いて終了コードで結果を返す。
	// distrolessイメージにはcurlが無いため、DockerのHEALTHCHECKから使う。
	CommandHealthcheck Command = "healthcheck"
)

var commands = map[string]Command{
	string(CommandServe):       CommandServe,
	string(CommandWorker):      CommandWorker,
	string(CommandMigrate):     CommandMigrate,
	string(CommandHealthcheck): CommandHealthcheck,
}

// LookupCommand は名前に対応するサブコマンドを返す。
func LookupCommand(name string) (Command, bool) {
	cmd, ok := commands[name]
	return cmd, ok
}

// ParseCommand はos.Args[1:]の先頭からサブコマンドを決める。
// 引数なし、または未知の名前の場合はserve。2番目以降の引数は見ない。
func ParseCommand(args []string) Command {
	if len(args) == 0 {
		return CommandServe
	}
	if cmd, ok := LookupCommand(args[0]); ok {
		return cmd
	}
	return CommandServe
}
