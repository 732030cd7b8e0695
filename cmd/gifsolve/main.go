package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/fatih/color"
	"go.uber.org/zap"

	"github.com/park285/chess-gif-solver/internal/adapter/solverpresenter"
	"github.com/park285/chess-gif-solver/internal/board"
	appcfg "github.com/park285/chess-gif-solver/internal/config"
	"github.com/park285/chess-gif-solver/internal/msgcat"
	"github.com/park285/chess-gif-solver/internal/obslog"
	"github.com/park285/chess-gif-solver/internal/solverbuilder"
	"github.com/park285/chess-gif-solver/pkg/solverclient"
)

// dialOverride replaces the client's network dialer when set.
var dialOverride func() (net.Conn, error)

type options struct {
	placement string
	budget    time.Duration
	out       string
	engine    string
	server    string
}

func main() {
	var opt options
	flag.StringVar(&opt.placement, "placement", "", "position string, e.g. 4k3/8/8/8/8/8/4P3/8")
	flag.DurationVar(&opt.budget, "budget", 0, "search time (default SEARCH_BUDGET)")
	flag.StringVar(&opt.out, "out", "moves.gif", "animation output file")
	flag.StringVar(&opt.engine, "engine", "", "UCI engine binary (default ENGINE_PATH)")
	flag.StringVar(&opt.server, "server", "", "solve on a running gifsolver, e.g. http://localhost:8080")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, opt); err != nil {
		color.New(color.FgRed).Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, opt options) error {
	if strings.TrimSpace(opt.placement) == "" {
		return errors.New("-placement is required")
	}
	cfg, err := appcfg.LoadUnchecked()
	if err != nil {
		return err
	}
	if strings.TrimSpace(opt.server) != "" {
		return runRemote(ctx, cfg, opt)
	}
	return runLocal(ctx, cfg, opt)
}

func runLocal(ctx context.Context, cfg *appcfg.AppConfig, opt options) error {
	if opt.engine != "" {
		cfg.EnginePath = opt.engine
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	// History and file output are server concerns; the CLI writes exactly one file.
	cfg.DatabaseURL, cfg.StoreDir, cfg.OutputDir = "", "", ""

	logger, err := fileLogger()
	if err != nil {
		return err
	}
	if logger != nil {
		defer func() { _ = logger.Sync() }()
	}

	deps, err := solverbuilder.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer deps.Close()

	if err := deps.Service.Load(opt.placement); err != nil {
		return err
	}
	text := solverpresenter.NewFormatter(deps.Messages)
	fmt.Println(color.CyanString("%s", text.Header(board.Encode(deps.Service.Board()))))

	result, err := deps.Service.Solve(ctx, opt.budget)
	if err != nil {
		return fmt.Errorf("solve: %w", err)
	}
	if result.Invalid {
		color.Yellow("%s", result.Summary)
		return errors.New("position rejected by the engine adapter")
	}
	color.Green("%s", result.Summary)
	if !result.Record.HasAnimation() {
		color.Yellow("%s", text.NoMoves())
		return nil
	}
	return writeAnimation(text, opt.out, result.Record.Animation, result.Record.Frames)
}

func runRemote(ctx context.Context, cfg *appcfg.AppConfig, opt options) error {
	messages, err := msgcat.New(cfg.MessagesDir)
	if err != nil {
		return err
	}
	text := solverpresenter.NewFormatter(messages)
	var clientOpts []solverclient.Option
	if dialOverride != nil {
		dial := dialOverride
		clientOpts = append(clientOpts, solverclient.WithDial(func(string) (net.Conn, error) { return dial() }))
	}
	client := solverclient.NewClient(opt.server, clientOpts...)

	state, err := client.LoadBoard(ctx, opt.placement)
	if err != nil {
		return fmt.Errorf("load board: %w", err)
	}
	fmt.Println(color.CyanString("%s", text.Header(state.FEN)))

	res, err := client.Solve(ctx, opt.budget)
	var apiErr *solverclient.APIError
	if errors.As(err, &apiErr) && apiErr.Status == 422 {
		color.Yellow("%s", apiErr.Message)
		return errors.New("position rejected by the engine adapter")
	}
	if err != nil {
		return fmt.Errorf("solve: %w", err)
	}
	color.Green("%s", res.Summary)
	if res.AnimationURL == "" {
		color.Yellow("%s", text.NoMoves())
		return nil
	}
	data, err := client.Animation(ctx, res.AnimationURL)
	if err != nil {
		return fmt.Errorf("download animation: %w", err)
	}
	return writeAnimation(text, opt.out, data, res.Frames)
}

func writeAnimation(text *solverpresenter.Formatter, path string, data []byte, frames int) error {
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	fmt.Println(text.Frames(frames, path))
	return nil
}

// fileLogger keeps logs out of the terminal. It returns nil unless LOG_FILE is set.
func fileLogger() (*zap.Logger, error) {
	if strings.TrimSpace(os.Getenv("LOG_FILE")) == "" {
		return nil, nil
	}
	opt := obslog.OptionsFromEnv()
	opt.Console, opt.ToFile = false, true
	return obslog.New(opt)
}
