package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/annel0/stackattack/internal/client"
	"github.com/annel0/stackattack/internal/inventory"
	"github.com/annel0/stackattack/internal/network"
	"github.com/annel0/stackattack/internal/vec"
	"github.com/spf13/cobra"
)

var positions []string

func newTransferCmd(kind inventory.OperationKind, short string) *cobra.Command {
	cmd := &cobra.Command{
		Use:     kind.String(),
		Short:   short,
		Example: fmt.Sprintf("  stackctl %s --token $TOKEN --pos 1,64,1 --pos 2,64,1", kind),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTransfer(cmd.Context(), kind)
		},
	}
	cmd.Flags().StringArrayVar(&positions, "pos", nil, "позиция открытого контейнера x,y,z (можно несколько, порядок сохраняется)")
	return cmd
}

func runTransfer(ctx context.Context, kind inventory.OperationKind) error {
	if ctx == nil {
		ctx = context.Background()
	}

	c, err := dial(ctx)
	if err != nil {
		return err
	}
	defer c.Close()

	for _, p := range positions {
		pos, err := vec.ParseVec3(p)
		if err != nil {
			return failure("Неверная позиция контейнера", err)
		}
		c.Session().Open(pos)
	}

	if err := c.Perform(kind); err != nil {
		if errors.Is(err, client.ErrNoOpenContainers) {
			warning("Нет открытых контейнеров, укажите --pos")
			return nil
		}
		return failure("Не удалось отправить операцию", err)
	}

	// Ответа на операцию нет: ping подтверждает, что кадр дошёл до сервера
	rtt, err := c.Ping(ctx)
	if err != nil {
		return failure("Сервер не ответил после отправки", err)
	}

	success("%s отправлена для %d контейнеров", kind, len(c.Session().OpenContainers()))
	cyan.Printf("  сервер %s, rtt %s\n", serverAddr, rtt.Round(time.Microsecond))
	return nil
}

func dial(ctx context.Context) (*client.Client, error) {
	tr, err := network.ParseTransport(transportName)
	if err != nil {
		return nil, failure("Неизвестный транспорт", err)
	}

	tok := token
	if tok == "" {
		tok = os.Getenv("STACKATTACK_TOKEN")
	}

	dialCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	c, err := client.Dial(dialCtx, client.Options{Addr: serverAddr, Transport: tr, Token: tok})
	if err != nil {
		return nil, failure("Не удалось подключиться к серверу", err)
	}
	return c, nil
}

var pingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Проверить соединение с игровым сервером",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		c, err := dial(ctx)
		if err != nil {
			return err
		}
		defer c.Close()

		rtt, err := c.Ping(ctx)
		if err != nil {
			return failure("Сервер не ответил", err)
		}
		success("pong от %s за %s", serverAddr, rtt.Round(time.Microsecond))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(
		newTransferCmd(inventory.QuickStack, "Досложить в контейнеры уже лежащие в них товары"),
		newTransferCmd(inventory.DepositAll, "Выложить в контейнеры всё содержимое инвентаря"),
		newTransferCmd(inventory.WithdrawAll, "Забрать из контейнеров всё в инвентарь"),
		pingCmd,
	)
}
