package server

import (
	"context"
	"fmt"
	"os"
	"time"

	"src.nixrepl.dev/pkg/env"
	"src.nixrepl.dev/pkg/errutil"
	"src.nixrepl.dev/pkg/prog"
	"src.nixrepl.dev/pkg/rpc"
	"src.nixrepl.dev/pkg/service"
	"src.nixrepl.dev/pkg/store"
)

// Program is the evaluation server subprogram.
type Program struct {
	configPath string
	addr       string
	port       int
	token      string
	timeout    durationFlag
	db         string
	stdio      bool
	// Used in tests.
	serveOpts ServeOpts
}

func (p *Program) RegisterFlags(fs *prog.FlagSet) {
	fs.StringVar(&p.configPath, "config", "", "path to a YAML configuration file")
	fs.StringVar(&p.addr, "addr", "", "address to listen on (default 0.0.0.0)")
	fs.IntVar(&p.port, "port", 0, "port to listen on (default 8080)")
	fs.StringVar(&p.token, "token", "",
		"token required in the "+TokenHeader+" header (default $"+env.NIX_REPL_TOKEN+")")
	fs.Var(&p.timeout, "timeout", "limit on the running time of an evaluation; 0 disables it (default 5s)")
	fs.StringVar(&p.db, "db", "", "path to a database to record evaluations in")
	fs.BoolVar(&p.stdio, "stdio", false, "serve JSON-RPC on stdin and stdout instead of HTTP")
}

func (p *Program) Run(fds [3]*os.File, args []string) error {
	if len(args) > 0 {
		return prog.BadUsage("arguments are not allowed")
	}
	cfg, err := p.config()
	if err != nil {
		return err
	}

	svc := &service.Service{Evaluator: cfg.NewEvaluator()}
	closeStore := func() error { return nil }
	if cfg.DB != "" {
		st, err := store.NewStore(cfg.DB)
		if err != nil {
			logger.Printf("failed to open database: %v", err)
			logger.Printf("serving without recording evaluations")
		} else {
			svc.Store = st
			closeStore = st.Close
		}
	}

	if p.stdio {
		err = rpc.ServeConn(context.Background(), rpc.NewTransport(fds[0], fds[1]), svc)
	} else {
		if cfg.Token == "" {
			logger.Println("no token configured, accepting all requests")
		}
		fmt.Fprintf(fds[1], "nix-repl-server listening on %s\n", cfg.ListenAddr())
		err = Serve(cfg, NewHandler(cfg, svc), p.serveOpts)
	}
	return errutil.Multi(err, closeStore())
}

// Layers the configuration file, the token environment variable and the
// flags, in increasing order of precedence.
func (p *Program) config() (Config, error) {
	cfg := DefaultConfig()
	if p.configPath != "" {
		var err error
		cfg, err = LoadConfig(p.configPath)
		if err != nil {
			return Config{}, err
		}
	}
	if token := os.Getenv(env.NIX_REPL_TOKEN); token != "" {
		cfg.Token = token
	}
	if p.addr != "" {
		cfg.Addr = p.addr
	}
	if p.port != 0 {
		cfg.Port = p.port
	}
	if p.token != "" {
		cfg.Token = p.token
	}
	if p.timeout.set {
		cfg.Timeout = p.timeout.d
	}
	if p.db != "" {
		cfg.DB = p.db
	}
	return cfg, cfg.Validate()
}

// A duration flag that remembers whether it was set.
type durationFlag struct {
	d   time.Duration
	set bool
}

func (f *durationFlag) String() string {
	if !f.set {
		return ""
	}
	return f.d.String()
}

func (f *durationFlag) Set(s string) error {
	d, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	f.d, f.set = d, true
	return nil
}
