package ports

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestComposeMiddlewares(t *testing.T) {
	t.Parallel()

	tag := func(trace *[]string, name string) func(http.HandlerFunc) http.HandlerFunc {
		return func(next http.HandlerFunc) http.HandlerFunc {
			return func(w http.ResponseWriter, r *http.Request) {
				*trace = append(*trace, name+" pre")
				next(w, r)
				*trace = append(*trace, name+" post")
			}
		}
	}

	t.Run("single middleware", func(t *testing.T) {
		t.Parallel()

		var trace []string
		handler := ComposeMiddlewares(tag(&trace, "m1"))(
			func(w http.ResponseWriter, r *http.Request) {
				trace = append(trace, "handler")
			},
		)

		handler(httptest.NewRecorder(), &http.Request{})

		require.Equal(t, []string{"m1 pre", "handler", "m1 post"}, trace)
	})

	t.Run("first middleware is outermost", func(t *testing.T) {
		t.Parallel()

		var trace []string
		handler := ComposeMiddlewares(tag(&trace, "m1"), tag(&trace, "m2"), tag(&trace, "m3"))(
			func(w http.ResponseWriter, r *http.Request) {
				trace = append(trace, "handler")
			},
		)

		handler(httptest.NewRecorder(), &http.Request{})

		require.Equal(t, []string{
			"m1 pre", "m2 pre", "m3 pre",
			"handler",
			"m3 post", "m2 post", "m1 post",
		}, trace)
	})

	t.Run("no middlewares", func(t *testing.T) {
		t.Parallel()

		called := false
		handler := ComposeMiddlewares()(
			func(w http.ResponseWriter, r *http.Request) {
				called = true
			},
		)

		handler(httptest.NewRecorder(), &http.Request{})

		require.True(t, called)
	})
}
