/*
Copyright 2025 Staffbooks Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package notification

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWebhookSend(t *testing.T) {
	httpmock.ActivateNonDefault(httpClient)
	defer httpmock.DeactivateAndReset()

	var received map[string]interface{}
	httpmock.RegisterResponder(http.MethodPost, "https://hooks.example.com/events",
		func(req *http.Request) (*http.Response, error) {
			assert.Equal(t, "application/json", req.Header.Get("Content-Type"))
			assert.Equal(t, "secret", req.Header.Get("X-Api-Key"))
			require.NoError(t, json.NewDecoder(req.Body).Decode(&received))
			return httpmock.NewStringResponse(200, "ok"), nil
		})

	client := &WebhookClient{
		URL:     "https://hooks.example.com/events",
		Headers: map[string]string{"X-Api-Key": "secret"},
	}
	err := client.Send("transaction.allocated", map[string]string{"transaction_id": "txn_1"})
	require.NoError(t, err)

	assert.Equal(t, "transaction.allocated", received["event"])
	payload, ok := received["payload"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "txn_1", payload["transaction_id"])
}

func TestWebhookSendNon2xx(t *testing.T) {
	httpmock.ActivateNonDefault(httpClient)
	defer httpmock.DeactivateAndReset()

	httpmock.RegisterResponder(http.MethodPost, "https://hooks.example.com/events",
		httpmock.NewStringResponder(500, "boom"))

	client := &WebhookClient{URL: "https://hooks.example.com/events"}
	err := client.Send("bill.merged", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 500")
}

func TestWebhookSendNoURLIsNoop(t *testing.T) {
	httpmock.ActivateNonDefault(httpClient)
	defer httpmock.DeactivateAndReset()

	client := &WebhookClient{}
	assert.NoError(t, client.Send("statement.imported", nil))
	assert.Zero(t, httpmock.GetTotalCallCount())
}

func TestSendSlack(t *testing.T) {
	httpmock.ActivateNonDefault(httpClient)
	defer httpmock.DeactivateAndReset()

	httpmock.RegisterResponder(http.MethodPost, "https://hooks.slack.com/T000/B000",
		httpmock.NewStringResponder(200, "ok"))

	require.NoError(t, sendSlack("https://hooks.slack.com/T000/B000", "allocation lock release failed"))

	httpmock.RegisterResponder(http.MethodPost, "https://hooks.slack.com/T000/B000",
		httpmock.NewStringResponder(404, "no_service"))
	assert.Error(t, sendSlack("https://hooks.slack.com/T000/B000", "again"))
}
