package main

import (
	"os/signal"
	"strings"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	statex "github.com/tanpawarit/sentinel-orchestrator/agent/state"
	configx "github.com/tanpawarit/sentinel-orchestrator/pkg/config"
	webx "github.com/tanpawarit/sentinel-orchestrator/ui/web"
)

var (
	serveAddr      string
	serveTransport string
)

// portConfig reads the plain PORT variable set by hosting platforms.
type portConfig struct {
	Port string `envconfig:"PORT"`
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Password-protected web dashboard",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from SENTINEL_ADDR or PORT)")
	serveCmd.Flags().StringVar(&serveTransport, "transport", "", "subprocess or inprocess (default from SENTINEL_TRANSPORT)")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := loadAppConfig()
	if err != nil {
		return err
	}
	webCfg, err := configx.New[webx.Config]("SENTINEL")
	if err != nil {
		return err
	}
	port, err := configx.New[portConfig]("")
	if err != nil {
		return err
	}
	switch {
	case serveAddr != "":
		webCfg.Addr = serveAddr
	case strings.TrimSpace(port.Port) != "":
		webCfg.Addr = ":" + strings.TrimSpace(port.Port)
	}

	kind := cfg.Transport
	if serveTransport != "" {
		kind = serveTransport
	}
	ctrl, cleanup, err := buildController(ctx, cfg, kind)
	if err != nil {
		return err
	}
	defer cleanup()

	store, err := sessionStore()
	if err != nil {
		return err
	}

	srv, err := webx.NewServer(*webCfg, ctrl, store)
	if err != nil {
		return err
	}
	return srv.ListenAndServe(ctx)
}

// sessionStore uses Upstash Redis when UPSTASH_REDIS_URL is set.
func sessionStore() (statex.Store, error) {
	redisCfg, err := configx.New[statex.UpstashConfig]("UPSTASH_REDIS")
	if err != nil {
		log.Info().Msg("UPSTASH_REDIS_URL not set, keeping sessions in memory")
		return statex.NewMemoryStore(), nil
	}
	store, err := statex.NewUpstashStore(*redisCfg, nil)
	if err != nil {
		return nil, err
	}
	log.Info().Msg("sessions stored in Upstash Redis")
	return store, nil
}
