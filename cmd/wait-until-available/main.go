package main

import (
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"gitlab.com/dirk.krummacker/address-book/internal/config"
)

// pollInterval is the wait time between two health checks.
const pollInterval = 5 * time.Second

// Blocks until the service on PORT reports itself healthy.
//
// Usage example on the command line:
// > PORT=8080 go run main.go
func main() {
	cfg, err := config.Load(".env")
	if err != nil {
		logrus.WithError(err).Fatal("could not load configuration")
	}
	url := fmt.Sprintf("http://localhost:%d/health", cfg.Port)
	client := &http.Client{Timeout: pollInterval}

	var totalWaitTime time.Duration
	for {
		res, err := client.Get(url)
		if err == nil {
			res.Body.Close()
			if res.StatusCode == http.StatusOK {
				logrus.WithField("url", url).Info("service is available")
				return
			}
			logrus.WithField("status", res.StatusCode).Info("service is not healthy yet")
		} else {
			logrus.WithError(err).Info("service is not reachable yet")
		}
		totalWaitTime += pollInterval
		logrus.Infof("Waiting %s", totalWaitTime)
		time.Sleep(pollInterval)
	}
}
