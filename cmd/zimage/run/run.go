package cmd

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/zimage-studio/zimage-server/internal/app"
	"github.com/zimage-studio/zimage-server/internal/config"
	"github.com/zimage-studio/zimage-server/internal/server"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var Cmd = &cobra.Command{
	Use:   "run",
	Short: "Start the zimage server",
	RunE:  runApp,
}

func init() {
	flags := Cmd.Flags()

	flags.Int("port", config.DefaultPort, "Port to run the server on")
	flags.String("host", config.DefaultHost, "Host to run the server on")
	flags.String("environment", "dev", "Environment configuration")
	flags.String("worker-addr", config.DefaultWorkerAddr, "Address of the inference worker, host:port")
	flags.Int("worker-timeout", config.DefaultWorkerTimeout, "Per-frame worker timeout in seconds")
	flags.String("filesystem-type", "local", "Filesystem type: 'local' or 's3'")
	flags.String("public-dir", "", "Path where static files should be served from")

	flags.String("pulsar-url", "", "URL of the pulsar broker. Example: pulsar+ssl://my-cluster.streamnative.cloud:6651")

	flags.String("s3-access-key", "", "S3 access key")
	flags.String("s3-secret-key", "", "S3 secret key")
	flags.String("s3-region-name", "", "S3 region name")
	flags.String("s3-bucket-name", "", "S3 bucket name")
	flags.String("s3-folder", "", "S3 folder")
	flags.String("s3-public-url", "", "Public URL for S3 files")
	flags.String("s3-endpoint-url", "", "S3 endpoint URL")

	viper.BindPFlags(flags)
	bindEnvs()
}

func bindEnvs() {
	// Core settings use the ZIMAGE_ prefix, e.g. ZIMAGE_PORT.
	viper.BindEnv("port")
	viper.BindEnv("host")
	viper.BindEnv("environment")
	viper.BindEnv("worker_addr")
	viper.BindEnv("worker_timeout")
	viper.BindEnv("filesystem_type")
	viper.BindEnv("public_dir")

	viper.BindEnv("pulsar.url")

	// Example: ZIMAGE_S3_ACCESS_KEY
	viper.BindEnv("s3.access_key")
	viper.BindEnv("s3.secret_key")
	viper.BindEnv("s3.region_name")
	viper.BindEnv("s3.bucket_name")
	viper.BindEnv("s3.folder")
	viper.BindEnv("s3.public_url")
	viper.BindEnv("s3.endpoint_url")

	// External API services do NOT use the ZIMAGE_ prefix.
	viper.BindEnv("openai.api_key", "OPENAI_API_KEY")
	viper.BindEnv("hf_token", "HF_TOKEN")
}

func runApp(_ *cobra.Command, _ []string) error {
	app, err := createNewApp()
	if err != nil {
		return err
	}
	defer app.Close()

	errc := make(chan error, 2)
	signalc := make(chan os.Signal, 1)

	srv, err := runServer(app)
	if err != nil {
		return err
	}

	go func() {
		if err := app.RunNotificationDispatcher(); err != nil {
			errc <- err
		}
	}()

	signal.Notify(signalc, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-signalc:
		app.Logger.Info("Shutting down")
		return srv.Stop(app.Context())
	}
}

func createNewApp() (*app.App, error) {
	cfg := config.MustGetConfig()

	options := []app.OptionFunc{
		app.WithWorkerRuntime(),
		app.WithFileUploader(),
	}

	if cfg.Pulsar != nil && cfg.Pulsar.URL != "" {
		options = append(options, app.WithMQ())
	}

	if cfg.OpenAI != nil && cfg.OpenAI.APIKey != "" {
		options = append(options, app.WithSafetyFilter())
	}

	return app.NewApp(cfg, options...)
}

func runServer(app *app.App) (*server.Server, error) {
	srv, err := server.NewServer(app.Config())
	if err != nil {
		return nil, err
	}

	srv.SetupRoutes(app)

	errc := make(chan error, 1)
	go func() {
		fmt.Printf("Z-Image server started on port %v\n", app.Config().Port)
		errc <- srv.Start()
	}()

	select {
	case err := <-errc:
		return nil, err
	default:
		return srv, nil
	}
}
