//go:build unix

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/Trinoooo/eggie_web/consts"
	"github.com/Trinoooo/eggie_web/interactive/web-cli/handle"
	"github.com/Trinoooo/eggie_web/utils"
	"github.com/chzyer/readline"
	"github.com/urfave/cli/v2"
)

func main() {
	wrapper := NewCliWrapper()
	if err := wrapper.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

var (
	flagHost = &cli.StringFlag{
		Name:    "host",
		Aliases: []string{"h"},
		Value:   "127.0.0.1",
		Usage:   "server host name.",
		EnvVars: []string{consts.Host},
	}
	flagPort = &cli.Int64Flag{
		Name:    "port",
		Aliases: []string{"p"},
		Value:   1317,
		Usage:   "server port number, 1024 <= port <= 65535 are available.",
		Action: func(c *cli.Context, port int64) error {
			if port < 1024 || port > 65535 {
				return errors.New("invalid params")
			}
			return nil
		},
		EnvVars: []string{consts.Port},
	}
)

type CliWrapper struct {
	app *cli.App
}

func NewCliWrapper() *CliWrapper {
	wrapper := &CliWrapper{
		app: &cli.App{
			Name:    "eggie_web_client",
			Usage:   "client for - a web server based on epoll reactor",
			Version: consts.AppVersion,
		},
	}
	wrapper.modifyDefaultHelp()
	wrapper.withFlags()
	wrapper.withAction()
	return wrapper
}

func (wrapper *CliWrapper) Run(args []string) error {
	return wrapper.app.Run(args)
}

func (wrapper *CliWrapper) modifyDefaultHelp() {
	cli.HelpFlag = &cli.BoolFlag{
		Name: "help",
	}
}

func (wrapper *CliWrapper) withFlags() {
	wrapper.app.Flags = []cli.Flag{
		flagHost,
		flagPort,
	}
}

func (wrapper *CliWrapper) withAction() {
	wrapper.app.Action = func(ctx *cli.Context) error {
		cancelCtx, cancel := context.WithCancel(context.Background())
		defer cancel()

		base, err := url.Parse(fmt.Sprintf("http://%s:%d/", ctx.String("host"), ctx.Int64("port")))
		if err != nil {
			log.Println("error occur when parse server url, err: ", err)
			return nil
		}

		client := &handle.ClientWrapper{
			Base: base,
			// 服务器无响应时避免 readline 卡住
			Http: &http.Client{Timeout: 5 * time.Second},
			Ctx:  cancelCtx,
		}

		historyDir := fmt.Sprintf("%s/cli", consts.TmpDir)
		if err = utils.EnsureDir(historyDir); err != nil {
			log.Println(utils.WrapError("create history dir failed, err: %v", err))
			return err
		}

		input, err := readline.NewEx(&readline.Config{
			Prompt: "> ",
			AutoComplete: readline.NewPrefixCompleter(
				readline.PcItem("get"),
				readline.PcItem("login"),
				readline.PcItem("register"),
				readline.PcItem("exit"),
			),
			HistoryFile: fmt.Sprintf("%s/cmd_history_%s", historyDir, time.Now().Format("20060102")),
		})
		if err != nil {
			return err
		}
		defer input.Close()

		cSignal := make(chan os.Signal, 1)
		signal.Notify(cSignal, os.Interrupt, syscall.SIGTERM)
		go func() {
			<-cSignal
			cancel()
		}()

		for {
			select {
			case <-cancelCtx.Done():
				return nil
			default:
				str, err := input.Readline()
				if err != nil {
					if errors.Is(err, readline.ErrInterrupt) || errors.Is(err, io.EOF) {
						return nil
					}
					log.Println(err)
					continue
				}
				if strings.EqualFold(strings.TrimSpace(str), "exit") {
					return nil
				}
				client.HandleInput(str)
			}
		}
	}
}
