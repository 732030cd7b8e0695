// Package ucitest provides a scripted UCI engine for tests. A test binary re-executes
// itself as the engine: TestMain calls MaybeServe, which takes over the process when
// the EnvMode variable is set.
package ucitest

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
)

const (
	EnvMode = "GIFSOLVER_FAKE_UCI"
	EnvPV   = "GIFSOLVER_FAKE_PV"
	// EnvLog, when set, names a file that receives every command the engine reads.
	EnvLog = "GIFSOLVER_FAKE_LOG"
)

// Modes understood by Serve.
const (
	// ModeNormal answers go immediately with info and bestmove.
	ModeNormal = "normal"
	// ModeStop withholds the result until stop arrives.
	ModeStop = "stop"
	// ModeHang never answers go and ignores quit.
	ModeHang = "hang"
	// ModeNoMove reports bestmove (none) without any info line.
	ModeNoMove = "nomove"
	// ModeCrash exits right after the handshake.
	ModeCrash = "crash"
)

// MaybeServe runs the fake engine and exits if the current process was started as one.
func MaybeServe() {
	mode := os.Getenv(EnvMode)
	if mode == "" {
		return
	}
	var log io.Writer = io.Discard
	if path := os.Getenv(EnvLog); path != "" {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err == nil {
			defer f.Close()
			log = f
		}
	}
	pv := strings.Fields(os.Getenv(EnvPV))
	Serve(os.Stdin, os.Stdout, log, mode, pv)
	os.Exit(0)
}

// Serve speaks UCI on r/w until quit or EOF.
func Serve(r io.Reader, w io.Writer, log io.Writer, mode string, pv []string) {
	sc := bufio.NewScanner(r)
	searching := false
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		fmt.Fprintln(log, line)
		cmd := line
		if i := strings.IndexByte(line, ' '); i >= 0 {
			cmd = line[:i]
		}

		switch cmd {
		case "uci":
			fmt.Fprintln(w, "id name FakeFish")
			fmt.Fprintln(w, "id author tests")
			fmt.Fprintln(w, "option name Threads type spin default 1 min 1 max 512")
			fmt.Fprintln(w, "uciok")
			if mode == ModeCrash {
				return
			}
		case "isready":
			fmt.Fprintln(w, "readyok")
		case "go":
			switch mode {
			case ModeHang:
				hang()
			case ModeStop:
				searching = true
			case ModeNoMove:
				fmt.Fprintln(w, "bestmove (none)")
			default:
				report(w, pv)
			}
		case "stop":
			if searching {
				searching = false
				report(w, pv)
			}
		case "quit":
			if mode == ModeHang {
				hang()
			}
			return
		}
	}
	if mode == ModeHang {
		hang()
	}
}

func report(w io.Writer, pv []string) {
	fmt.Fprintln(w, "info string searching")
	if len(pv) > 0 {
		fmt.Fprintf(w, "info depth 1 multipv 1 score cp 10 pv %s\n", pv[0])
		fmt.Fprintf(w, "info depth 12 multipv 1 score cp 35 nodes 4096 pv %s\n", strings.Join(pv, " "))
		fmt.Fprintf(w, "info depth 12 multipv 2 score cp -20 pv %s\n", pv[0])
		fmt.Fprintf(w, "bestmove %s\n", pv[0])
		return
	}
	fmt.Fprintln(w, "bestmove (none)")
}

func hang() {
	for {
		time.Sleep(time.Hour)
	}
}
