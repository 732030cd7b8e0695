package uci

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"
)

const (
	defaultReadyTimeout = 4 * time.Second
	defaultStopGrace    = 2 * time.Second
	lineBuffer          = 64
)

var (
	ErrSearchTimeout = errors.New("engine search did not finish in time")
	ErrSessionClosed = errors.New("engine session closed")
)

type Options struct {
	Threads int
	HashMB  int
	// StopGrace bounds how long the engine may overrun its move time before it is
	// told to stop, and how long it gets to exit on quit before being killed.
	StopGrace time.Duration
}

type AnalyseRequest struct {
	FEN      string
	MoveTime time.Duration
}

// Analysis is the final report of one search.
type Analysis struct {
	BestMove  string
	Principal []string
	ScoreCP   int
	Mate      int
	HasMate   bool
	Depth     int
}

type Session struct {
	cmd   *exec.Cmd
	stdin io.WriteCloser
	lines chan string
	grace time.Duration

	mu      sync.Mutex
	search  sync.Mutex
	readErr error

	done      chan struct{}
	closeOnce sync.Once
	closeErr  error
}

// NewSession starts the engine binary and completes the UCI handshake. The returned
// session owns the process; callers must Close it.
func NewSession(ctx context.Context, binaryPath string, args []string, opt Options) (*Session, error) {
	if err := validateOptions(opt); err != nil {
		return nil, err
	}

	cmd := exec.CommandContext(ctx, binaryPath, args...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("create stdin pipe: %w", err)
	}
	stdoutPipe, err := cmd.StdoutPipe()
	if err != nil {
		stdin.Close()
		return nil, fmt.Errorf("create stdout pipe: %w", err)
	}
	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		stdin.Close()
		stdoutPipe.Close()
		return nil, fmt.Errorf("start engine: %w", err)
	}

	grace := opt.StopGrace
	if grace <= 0 {
		grace = defaultStopGrace
	}
	s := &Session{
		cmd:   cmd,
		stdin: stdin,
		lines: make(chan string, lineBuffer),
		grace: grace,
		done:  make(chan struct{}),
	}
	go s.pump(stdoutPipe)

	if err := s.initialize(ctx, opt); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

// Analyse runs one time-limited search from a FEN and returns the principal
// variation reported for the first line.
func (s *Session) Analyse(ctx context.Context, req AnalyseRequest) (Analysis, error) {
	s.search.Lock()
	defer s.search.Unlock()

	goTokens, err := buildGoTokens(req.MoveTime)
	if err != nil {
		return Analysis{}, err
	}
	if err := s.send("ucinewgame\n"); err != nil {
		return Analysis{}, fmt.Errorf("send ucinewgame: %w", err)
	}
	if err := s.EnsureReady(ctx); err != nil {
		return Analysis{}, err
	}
	if err := s.send(buildPositionCommand(req.FEN)); err != nil {
		return Analysis{}, fmt.Errorf("send position: %w", err)
	}
	if err := s.send(strings.Join(goTokens, " ") + "\n"); err != nil {
		return Analysis{}, fmt.Errorf("send go: %w", err)
	}

	searchCtx, cancel := context.WithTimeout(ctx, req.MoveTime+s.grace)
	defer cancel()

	var (
		latest  info
		stopped bool
	)
	for {
		line, err := s.readLine(searchCtx)
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil && !stopped {
				// Overran the move time: ask for the result once, then give up.
				stopped = true
				if serr := s.send("stop\n"); serr != nil {
					return Analysis{}, fmt.Errorf("send stop: %w", serr)
				}
				cancel()
				searchCtx, cancel = context.WithTimeout(ctx, s.grace)
				continue
			}
			if errors.Is(err, context.DeadlineExceeded) && stopped && ctx.Err() == nil {
				return Analysis{}, ErrSearchTimeout
			}
			return Analysis{}, fmt.Errorf("read line: %w", err)
		}
		if line == "" {
			continue
		}

		switch {
		case strings.HasPrefix(line, "info "):
			if in, ok := parseInfo(line); ok && in.multipv == 1 {
				latest = in
			}
		case strings.HasPrefix(line, "bestmove"):
			return finishAnalysis(latest, line), nil
		}
	}
}

func finishAnalysis(latest info, bestLine string) Analysis {
	res := Analysis{
		Principal: append([]string(nil), latest.pv...),
		ScoreCP:   latest.scoreCP,
		Mate:      latest.mate,
		HasMate:   latest.hasMate,
		Depth:     latest.depth,
	}
	parts := strings.Fields(bestLine)
	if len(parts) >= 2 && parts[1] != "(none)" && parts[1] != "0000" {
		res.BestMove = parts[1]
	}
	if len(res.Principal) == 0 && res.BestMove != "" {
		res.Principal = []string{res.BestMove}
	}
	return res
}

func buildPositionCommand(fen string) string {
	var sb strings.Builder
	if strings.TrimSpace(fen) == "" || fen == "startpos" {
		sb.WriteString("position startpos")
	} else {
		sb.WriteString("position fen ")
		sb.WriteString(strings.TrimSpace(fen))
	}
	sb.WriteString("\n")
	return sb.String()
}

func validateOptions(opt Options) error {
	if opt.Threads < 0 {
		return fmt.Errorf("threads must be >= 0: %d", opt.Threads)
	}
	if opt.HashMB < 0 {
		return fmt.Errorf("hash size must be >= 0: %d", opt.HashMB)
	}
	return nil
}

func buildGoTokens(moveTime time.Duration) ([]string, error) {
	ms := moveTime.Milliseconds()
	if ms <= 0 {
		return nil, fmt.Errorf("move time must be positive: %s", moveTime)
	}
	return []string{"go", "movetime", strconv.FormatInt(ms, 10)}, nil
}

type info struct {
	multipv int
	depth   int
	scoreCP int
	mate    int
	hasMate bool
	pv      []string
}

func parseInfo(line string) (info, bool) {
	parts := strings.Fields(line)
	if len(parts) < 2 || parts[0] != "info" || parts[1] == "string" {
		return info{}, false
	}
	in := info{multipv: 1}
	pvIdx := -1

	for i := 1; i < len(parts); i++ {
		switch parts[i] {
		case "multipv":
			if i+1 < len(parts) {
				if v, err := strconv.Atoi(parts[i+1]); err == nil {
					in.multipv = v
				}
				i++
			}
		case "depth":
			if i+1 < len(parts) {
				if v, err := strconv.Atoi(parts[i+1]); err == nil {
					in.depth = v
				}
				i++
			}
		case "score":
			if i+2 < len(parts) {
				v, err := strconv.Atoi(parts[i+2])
				if err == nil {
					switch parts[i+1] {
					case "cp":
						in.scoreCP = v
					case "mate":
						in.mate = v
						in.hasMate = true
					}
				}
				i += 2
			}
		case "pv":
			pvIdx = i + 1
			i = len(parts)
		}
	}

	if pvIdx == -1 || pvIdx >= len(parts) {
		return info{}, false
	}
	in.pv = append([]string(nil), parts[pvIdx:]...)
	return in, true
}

func (s *Session) EnsureReady(ctx context.Context) error {
	readyCtx, cancel := context.WithTimeout(ctx, defaultReadyTimeout)
	defer cancel()

	if err := s.send("isready\n"); err != nil {
		return fmt.Errorf("send isready: %w", err)
	}
	if err := s.awaitToken(readyCtx, "readyok"); err != nil {
		return fmt.Errorf("wait readyok: %w", err)
	}
	return nil
}

// Close asks the engine to quit and kills it if it has not exited within the grace
// period. The process is always reaped. Close is safe to call more than once.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.shutdown()
	})
	return s.closeErr
}

func (s *Session) shutdown() error {
	_ = s.send("quit\n")
	s.mu.Lock()
	if s.stdin != nil {
		s.stdin.Close()
	}
	s.mu.Unlock()

	waited := make(chan error, 1)
	go func() { waited <- s.cmd.Wait() }()

	var err error
	select {
	case err = <-waited:
	case <-time.After(s.grace):
		if s.cmd.Process != nil {
			_ = s.cmd.Process.Kill()
		}
		<-waited
		err = nil
	}
	close(s.done)

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		// Engines commonly exit non-zero on quit; only start/IO failures matter here.
		return nil
	}
	return err
}

func (s *Session) initialize(ctx context.Context, opt Options) error {
	initCtx, cancel := context.WithTimeout(ctx, defaultReadyTimeout)
	defer cancel()

	if err := s.send("uci\n"); err != nil {
		return fmt.Errorf("send uci: %w", err)
	}
	if err := s.awaitToken(initCtx, "uciok"); err != nil {
		return fmt.Errorf("wait uciok: %w", err)
	}

	if err := s.applyOptions(opt); err != nil {
		return err
	}

	if err := s.send("isready\n"); err != nil {
		return fmt.Errorf("send isready: %w", err)
	}
	if err := s.awaitToken(initCtx, "readyok"); err != nil {
		return fmt.Errorf("wait readyok: %w", err)
	}
	return nil
}

func (s *Session) applyOptions(opt Options) error {
	cmds := []string{"setoption name MultiPV value 1\n"}
	if opt.Threads > 0 {
		cmds = append(cmds, fmt.Sprintf("setoption name Threads value %d\n", opt.Threads))
	}
	if opt.HashMB > 0 {
		cmds = append(cmds, fmt.Sprintf("setoption name Hash value %d\n", opt.HashMB))
	}
	for _, cmd := range cmds {
		if err := s.send(cmd); err != nil {
			return fmt.Errorf("apply options: %w", err)
		}
	}
	return nil
}

func (s *Session) send(msg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := io.WriteString(s.stdin, msg)
	return err
}

func (s *Session) awaitToken(ctx context.Context, token string) error {
	for {
		line, err := s.readLine(ctx)
		if err != nil {
			return err
		}
		if strings.Contains(line, token) {
			return nil
		}
	}
}

// pump is the only reader of the engine's stdout.
func (s *Session) pump(r io.Reader) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	defer close(s.lines)
	for sc.Scan() {
		select {
		case s.lines <- strings.TrimSpace(sc.Text()):
		case <-s.done:
			return
		}
	}
	if err := sc.Err(); err != nil {
		s.readErr = err
	} else {
		s.readErr = io.EOF
	}
}

func (s *Session) readLine(ctx context.Context) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case line, ok := <-s.lines:
		if !ok {
			if s.readErr != nil {
				return "", fmt.Errorf("engine output closed: %w", s.readErr)
			}
			return "", ErrSessionClosed
		}
		return line, nil
	}
}
