package commands

import (
	"github.com/spf13/cobra"
)

var (
	serverAddr    string
	transportName string
	token         string
)

var rootCmd = &cobra.Command{
	Use:   "stackctl",
	Short: "stackctl - консольный клиент StackAttack",
	Long: `stackctl подключается к игровому серверу от имени игрока и выполняет
массовый перенос предметов между инвентарём игрока и открытыми контейнерами:

  quickstack  досложить в контейнеры то, что в них уже лежит
  deposit     выложить в контейнеры всё
  withdraw    забрать из контейнеров всё

Токен игрока можно получить командой "stackctl token".`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

// Execute запускает корневую команду
func Execute() error {
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverAddr, "addr", "127.0.0.1:7777", "адрес игрового сервера")
	rootCmd.PersistentFlags().StringVar(&transportName, "transport", "tcp", "транспорт: tcp или kcp")
	rootCmd.PersistentFlags().StringVar(&token, "token", "", "JWT игрока (или переменная STACKATTACK_TOKEN)")
}
