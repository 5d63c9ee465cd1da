package docs

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/swaggo/swag"
)

func TestSwaggerDocumentIsRegistered(t *testing.T) {
	doc, err := swag.ReadDoc(SwaggerInfo.InstanceName())
	require.NoError(t, err)

	var parsed struct {
		Info struct {
			Title string `json:"title"`
		} `json:"info"`
		Paths map[string]map[string]json.RawMessage `json:"paths"`
	}
	require.NoError(t, json.Unmarshal([]byte(doc), &parsed))
	assert.Equal(t, "Chats API", parsed.Info.Title)

	routes := map[string]string{
		"/chats":                 "post",
		"/chats/id/{id}":         "get",
		"/chats/user/{username}": "get",
		"/healthz":               "get",
		"/api/v1/sweeper/start":  "post",
		"/api/v1/sweeper/stop":   "post",
		"/api/v1/sweeper/status": "get",
	}
	for path, method := range routes {
		assert.Contains(t, parsed.Paths[path], method, path)
	}
	assert.Contains(t, parsed.Paths["/chats"], "get")
}
