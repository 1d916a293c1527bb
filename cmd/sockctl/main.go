// Command sockctl opens one socket, attaches it to an endpoint list and
// sends or receives pictures and signals on it.
//
//	sockctl -type PULL -endpoints 'tcp://127.0.0.1:*' recv si
//	sockctl -type PUSH -endpoints tcp://127.0.0.1:49152 send si hello 42
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/VanDung-dev/hierasock/api"
	"github.com/VanDung-dev/hierasock/config"
	"github.com/VanDung-dev/hierasock/logging"
	"github.com/VanDung-dev/hierasock/sock"
)

const usage = `usage: sockctl [flags] <command> [args]

commands:
  endpoint              print the last bound endpoint and wait for interrupt
  send PICTURE ARGS...  send one picture message
  recv PICTURE [COUNT]  receive COUNT picture messages (default 1)
  signal STATUS         send a signal with STATUS (0-255)
  wait                  wait for a signal and print its status

flags:
`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "sockctl: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("sockctl", flag.ContinueOnError)
	fs.Usage = func() {
		fmt.Fprint(fs.Output(), usage)
		fs.PrintDefaults()
	}

	var (
		configPath = fs.String("config", "", "TOML config file")
		typeName   = fs.String("type", "", "socket type (overrides config)")
		endpoints  = fs.String("endpoints", "", "endpoint list (overrides config)")
		serverish  = fs.Bool("serverish", false, "bind endpoints without a sigil")
		subscribe  = fs.String("subscribe", "", "SUB prefix (overrides config)")
		metrics    = fs.String("metrics", "", "serve Prometheus metrics on this address (overrides config)")
		logLevel   = fs.String("log-level", "", "log level (overrides config)")
	)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return errors.New("missing command")
	}

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "type":
			cfg.Type = strings.ToUpper(*typeName)
		case "endpoints":
			cfg.Endpoints = *endpoints
		case "serverish":
			cfg.Serverish = *serverish
		case "subscribe":
			cfg.Subscribe = *subscribe
		case "metrics":
			cfg.MetricsAddress = *metrics
		case "log-level":
			cfg.LogLevel = *logLevel
		}
	})
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := logging.New("sockctl", cfg.Logging())

	h, err := open(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer h.Destroy()

	return dispatch(ctx, h, fs.Args(), stdout)
}

// open creates the configured socket and attaches its endpoints.
func open(ctx context.Context, cfg config.Config, logger zerolog.Logger) (*sock.Handle, error) {
	typ, err := cfg.SocketType()
	if err != nil {
		return nil, err
	}

	opts := append(cfg.SocketOptions(), sock.WithLogger(logger))
	if cfg.MetricsAddress != "" {
		opts = append(opts, sock.WithObserver(api.NewMetrics("hierasock")))
		server := api.NewMetricsServer(cfg.MetricsAddress)
		server.StartAsync()
		context.AfterFunc(ctx, func() { _ = server.Stop() })
		logger.Info().Str("address", cfg.MetricsAddress).Msg("serving metrics")
	}

	h, err := sock.New(ctx, typ, opts...)
	if err != nil {
		return nil, err
	}
	if cfg.Unbounded {
		if err := h.SetUnbounded(); err != nil {
			h.Destroy()
			return nil, err
		}
	}
	if typ == sock.Sub {
		if err := h.Subscribe(cfg.Subscribe); err != nil {
			h.Destroy()
			return nil, err
		}
	}
	if err := h.Attach(cfg.Endpoints, cfg.Serverish); err != nil {
		h.Destroy()
		return nil, err
	}

	logger.Debug().Str("type", h.TypeName()).Str("endpoint", h.Endpoint()).Msg("socket ready")
	return h, nil
}

func dispatch(ctx context.Context, h *sock.Handle, args []string, stdout io.Writer) error {
	command, rest := args[0], args[1:]

	switch command {
	case "endpoint":
		fmt.Fprintln(stdout, h.Endpoint())
		<-ctx.Done()
		return nil

	case "send":
		if len(rest) == 0 {
			return errors.New("send: missing picture")
		}
		elements, err := parseElements(rest[0], rest[1:])
		if err != nil {
			return fmt.Errorf("send: %w", err)
		}
		return h.SendPicture(rest[0], elements...)

	case "recv":
		if len(rest) == 0 || len(rest) > 2 {
			return errors.New("recv: usage: recv PICTURE [COUNT]")
		}
		if err := validPicture(rest[0]); err != nil {
			return fmt.Errorf("recv: %w", err)
		}
		count := 1
		if len(rest) == 2 {
			n, err := strconv.Atoi(rest[1])
			if err != nil || n < 1 {
				return fmt.Errorf("recv: invalid count %q", rest[1])
			}
			count = n
		}
		for i := 0; i < count; i++ {
			values, err := h.RecvPicture(rest[0])
			if err != nil {
				return fmt.Errorf("recv: %w", err)
			}
			fmt.Fprintln(stdout, formatValues(values))
		}
		return nil

	case "signal":
		if len(rest) != 1 {
			return errors.New("signal: usage: signal STATUS")
		}
		status, err := strconv.ParseUint(rest[0], 10, 8)
		if err != nil {
			return fmt.Errorf("signal: invalid status %q", rest[0])
		}
		return h.Signal(byte(status))

	case "wait":
		status, err := h.Wait()
		if err != nil {
			return fmt.Errorf("wait: %w", err)
		}
		fmt.Fprintln(stdout, status)
		return nil

	default:
		return fmt.Errorf("unknown command %q", command)
	}
}

func validPicture(picture string) error {
	for i := 0; i < len(picture); i++ {
		if !strings.ContainsRune("isbcf", rune(picture[i])) {
			return fmt.Errorf("invalid picture element '%c'", picture[i])
		}
	}
	return nil
}

// parseElements converts command-line arguments to picture elements. Bad
// pictures are reported as errors here; the codec would panic on them.
func parseElements(picture string, args []string) ([]sock.Element, error) {
	if err := validPicture(picture); err != nil {
		return nil, err
	}
	if len(args) != len(picture) {
		return nil, fmt.Errorf("picture %q takes %d arguments, got %d", picture, len(picture), len(args))
	}

	elements := make([]sock.Element, len(args))
	for i, arg := range args {
		switch picture[i] {
		case 'i':
			n, err := strconv.Atoi(arg)
			if err != nil {
				return nil, fmt.Errorf("argument %d: %q is not an integer", i+1, arg)
			}
			elements[i] = sock.Int(n)
		case 's':
			elements[i] = sock.Str(arg)
		case 'b':
			elements[i] = sock.Bytes(arg)
		case 'c':
			elements[i] = sock.NewChunk([]byte(arg))
		case 'f':
			elements[i] = sock.Frame(arg)
		}
	}
	return elements, nil
}

func formatValues(values sock.Values) string {
	parts := make([]string, len(values))
	for i, v := range values {
		switch v := v.(type) {
		case sock.Int:
			parts[i] = strconv.Itoa(int(v))
		case sock.Str:
			parts[i] = strconv.Quote(string(v))
		case sock.Bytes:
			parts[i] = fmt.Sprintf("%x", []byte(v))
		case *sock.Chunk:
			parts[i] = fmt.Sprintf("chunk[%d]%x", v.Size(), v.Data())
		case sock.Frame:
			parts[i] = fmt.Sprintf("frame[%d]%x", len(v), []byte(v))
		}
	}
	return strings.Join(parts, " ")
}
