package logging

import (
	"fmt"
	"io"
	"net"
	"strconv"

	"github.com/logdyhq/logdy-core/logdy"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"fence-worker-go/internal/config"
)

type logdyWriter struct {
	logger logdy.Logdy
}

func (w *logdyWriter) Write(p []byte) (n int, err error) {
	// Forward raw line to Logdy UI
	w.logger.LogString(string(p))
	return len(p), nil
}

// StartLogdy starts the embedded Logdy web UI and returns a writer that tees
// every log line to both the console writer and the UI, plus the UI URL.
func StartLogdy(cfg *config.Config, console io.Writer) (io.Writer, string, error) {
	addr := net.JoinHostPort(cfg.LogdyHost, strconv.Itoa(cfg.LogdyPort))

	// Logdy binds its listener internally with no error surface, so probe the
	// port up front instead of letting a conflict fail silently in the UI.
	probe, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, "", fmt.Errorf("logdy port unavailable: %w", err)
	}
	probe.Close()

	ld := logdy.InitializeLogdy(logdy.Config{
		ServerIp:   cfg.LogdyHost,
		ServerPort: strconv.Itoa(cfg.LogdyPort),
	}, nil)

	url := fmt.Sprintf("http://%s", addr)
	log.Info().Str("url", url).Msg("Logdy UI available")

	tee := zerolog.MultiLevelWriter(console, &logdyWriter{logger: ld})
	return tee, url, nil
}
