package app

import (
	"net/http"

	"github.com/sirupsen/logrus"
)

// Config holds runtime wiring options for building the app.
type Config struct {
	Home       string         // config directory, e.g. $HOME/.prism
	RelayURL   string         // relay base URL, e.g. http://127.0.0.1:8080
	RoutingTag string         // tag placed in our transport sender address
	HTTP       *http.Client   // optional; defaults to a client with DefaultTimeout
	Logger     *logrus.Logger // optional; defaults to the logrus standard logger
}
