package telegram_test

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"coinwatch/internal/telegram"
)

func okResponse(body string) *http.Response {
	return &http.Response{StatusCode: http.StatusOK, Body: io.NopCloser(strings.NewReader(body))}
}

func TestNewClient_RequiresToken(t *testing.T) {
	t.Parallel()

	_, err := telegram.NewClient("")
	require.Error(t, err)

	c, err := telegram.NewClient("123:abc")
	require.NoError(t, err)
	require.NotNil(t, c)
}

func TestGetUpdates(t *testing.T) {
	t.Parallel()

	// Arrange: create a mock controller
	ctrl := gomock.NewController(t)

	// Arrange: create a mock HTTP client
	httpClient := NewMockHTTPClient(ctrl)

	// Assert: stub the Do method
	httpClient.EXPECT().
		Do(gomock.Any()).
		DoAndReturn(func(req *http.Request) (*http.Response, error) {
			require.Equal(t, http.MethodGet, req.Method)
			require.Equal(t, "/bot123:abc/getUpdates", req.URL.Path)
			require.Equal(t, "42", req.URL.Query().Get("offset"))
			require.Equal(t, "30", req.URL.Query().Get("timeout"))
			return okResponse(`{"ok":true,"result":[{"update_id":42,"message":{"message_id":7,"from":{"id":1,"first_name":"Ann","username":"ann"},"chat":{"id":99},"text":"/get btc"}}]}`), nil
		}).
		Times(1)

	client, err := telegram.NewClient("123:abc", telegram.WithHTTPClient(httpClient), telegram.WithBaseURL("http://tg.local"))
	require.NoError(t, err)

	// Act
	updates, err := client.GetUpdates(t.Context(), 42, 30)
	require.NoError(t, err)

	// Assert: the update is decoded
	require.Len(t, updates, 1)
	require.EqualValues(t, 42, updates[0].UpdateID)
	require.NotNil(t, updates[0].Message)
	require.Equal(t, "/get btc", updates[0].Message.Text)
	require.Equal(t, "ann", updates[0].Message.From.Username)
	require.EqualValues(t, 99, updates[0].Message.Chat.ID)
}

func TestSendMessage(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	httpClient := NewMockHTTPClient(ctrl)
	httpClient.EXPECT().
		Do(gomock.Any()).
		DoAndReturn(func(req *http.Request) (*http.Response, error) {
			require.Equal(t, http.MethodPost, req.Method)
			require.Equal(t, "/bot123:abc/sendMessage", req.URL.Path)
			require.Equal(t, "application/json", req.Header.Get("Content-Type"))

			var body map[string]any
			require.NoError(t, json.NewDecoder(req.Body).Decode(&body))
			require.EqualValues(t, 99, body["chat_id"])
			require.Equal(t, "<pre>x</pre>", body["text"])
			require.Equal(t, "HTML", body["parse_mode"])
			require.EqualValues(t, 7, body["reply_to_message_id"])
			return okResponse(`{"ok":true,"result":{"message_id":8,"chat":{"id":99},"text":"x"}}`), nil
		}).
		Times(1)

	client, err := telegram.NewClient("123:abc", telegram.WithHTTPClient(httpClient))
	require.NoError(t, err)

	err = client.SendMessage(t.Context(), telegram.SendMessageRequest{
		ChatID:           99,
		Text:             "<pre>x</pre>",
		ParseMode:        telegram.ParseModeHTML,
		ReplyToMessageID: 7,
	})
	require.NoError(t, err)
}

func TestSendMessage_APIError(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	httpClient := NewMockHTTPClient(ctrl)
	httpClient.EXPECT().
		Do(gomock.Any()).
		Return(&http.Response{
			StatusCode: http.StatusBadRequest,
			Body:       io.NopCloser(strings.NewReader(`{"ok":false,"error_code":400,"description":"Bad Request: can't parse entities"}`)),
		}, nil).
		Times(1)

	client, err := telegram.NewClient("123:abc", telegram.WithHTTPClient(httpClient))
	require.NoError(t, err)

	err = client.SendMessage(t.Context(), telegram.SendMessageRequest{ChatID: 1, Text: "<b"})
	var apiErr *telegram.APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, 400, apiErr.Code)
	require.Contains(t, apiErr.Description, "can't parse entities")
}

func TestGetUpdates_TransportErrorHidesToken(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	httpClient := NewMockHTTPClient(ctrl)
	httpClient.EXPECT().
		Do(gomock.Any()).
		DoAndReturn(func(req *http.Request) (*http.Response, error) {
			return nil, &url.Error{Op: "Get", URL: req.URL.String(), Err: errors.New("connection refused")}
		}).
		Times(1)

	client, err := telegram.NewClient("123:secret", telegram.WithHTTPClient(httpClient))
	require.NoError(t, err)

	_, err = client.GetUpdates(t.Context(), 0, 1)
	require.ErrorContains(t, err, "connection refused")
	require.NotContains(t, err.Error(), "secret")
}

func TestGetUpdates_BadPayload(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	httpClient := NewMockHTTPClient(ctrl)
	httpClient.EXPECT().
		Do(gomock.Any()).
		Return(okResponse(`<html>bad gateway</html>`), nil).
		Times(1)

	client, err := telegram.NewClient("123:abc", telegram.WithHTTPClient(httpClient))
	require.NoError(t, err)

	_, err = client.GetUpdates(t.Context(), 0, 1)
	require.ErrorContains(t, err, "decoding response")
}
