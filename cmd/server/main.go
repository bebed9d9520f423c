// Command server runs a demo endpoint exposing one service over both the
// Fast RPC protocol and HTTP on a single port.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/golang/glog"

	"github.com/jerrygaohk/networksocket/app"
	"github.com/jerrygaohk/networksocket/config"
	"github.com/jerrygaohk/networksocket/core/dispatch"
)

// UserService is the demo service. Exported methods become actions on
// both protocols; the embedded NopFilter keeps the filter hooks optional.
type UserService struct {
	dispatch.NopFilter
}

// User is the demo payload.
type User struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Get looks a user up by id.
func (s *UserService) Get(id int) (User, error) {
	return User{ID: id, Name: fmt.Sprintf("user-%d", id)}, nil
}

// Create echoes the user back with an assigned id.
func (s *UserService) Create(u User) (User, error) {
	u.ID = 42
	return u, nil
}

// Ping answers liveness checks.
func (s *UserService) Ping(ctx context.Context) string {
	return "pong"
}

// configPathFromArgs pre-scans the arguments for -config so the file can
// be loaded before flag parsing; parsed flags then win over file values.
func configPathFromArgs(args []string) string {
	for i := 0; i < len(args); i++ {
		a := args[i]
		switch {
		case a == "-config" || a == "--config":
			if i+1 < len(args) {
				return args[i+1]
			}
		case strings.HasPrefix(a, "-config="):
			return strings.TrimPrefix(a, "-config=")
		case strings.HasPrefix(a, "--config="):
			return strings.TrimPrefix(a, "--config=")
		}
	}
	return ""
}

func main() {
	cfg := config.Default()

	if path := configPathFromArgs(os.Args[1:]); path != "" {
		if err := cfg.LoadFile(path); err != nil {
			glog.Exitf("config: %v", err)
		}
	}
	cfg.FromEnv()

	flag.String("config", "", "YAML config file")
	cfg.BindFlags(flag.CommandLine)
	flag.Parse()
	defer glog.Flush()

	a, err := app.New(cfg)
	if err != nil {
		glog.Exitf("init: %v", err)
	}

	svc := &UserService{}
	if err := a.Fast().Register("users", svc); err != nil {
		glog.Exitf("register fast service: %v", err)
	}
	if err := a.HTTP().GET("/api/ping", svc, "Ping"); err != nil {
		glog.Exitf("register route: %v", err)
	}
	if err := a.HTTP().POST("/api/users", svc, "Create"); err != nil {
		glog.Exitf("register route: %v", err)
	}

	glog.Infof("starting on %s", cfg.Addr)
	if err := a.Run(); err != nil {
		glog.Errorf("server: %v", err)
		os.Exit(1)
	}
}
