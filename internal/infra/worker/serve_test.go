package worker

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestServe_ListenFailure(t *testing.T) {
	srv := &http.Server{Addr: "127.0.0.1:-1"}

	err := Serve(context.Background(), discardLogger(), "broken", srv)
	assert.Error(t, err)
}
