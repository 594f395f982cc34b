package a

import (
	"net/http"
)

func fetch() error {
	resp, err := http.Get("https://example.com") // want `net/http.Get bypasses the transport client`
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	req, err := http.NewRequest(http.MethodGet, "https://example.com", nil) // want `net/http.NewRequest bypasses the transport client`
	if err != nil {
		return err
	}
	_, err = http.DefaultClient.Do(req) // want `net/http.DefaultClient bypasses the transport client`

	return err
}

func serve(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}
