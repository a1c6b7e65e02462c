package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"studx/handlers"
	"studx/messaging"
	"studx/middleware"
)

var testUserID = primitive.NewObjectID()

func withUser(userID string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.UserIDKey, userID)
		c.Next()
	}
}

func messagingRouter(svc handlers.MessagingService, userID string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(withUser(userID))

	convs := handlers.NewConversationHandler(svc, zerolog.Nop(), time.Second)
	msgs := handlers.NewMessageHandler(svc, zerolog.Nop(), time.Second)
	r.GET("/api/messages/conversations", convs.List)
	r.POST("/api/messages/conversations", convs.Create)
	r.GET("/api/messages/conversations/:id", msgs.List)
	r.POST("/api/messages/conversations/:id", msgs.Send)
	r.DELETE("/api/messages/conversations/:id", convs.Delete)
	return r
}

func do(r http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestConversationHandler_List(t *testing.T) {
	svc := &MockMessagingService{
		ListFunc: func(_ context.Context, callerID primitive.ObjectID) ([]messaging.ConversationSummary, error) {
			assert.Equal(t, testUserID, callerID)
			return []messaging.ConversationSummary{{ID: "c1", Name: "Priya", UnreadCount: 2}}, nil
		},
	}

	w := do(messagingRouter(svc, testUserID.Hex()), http.MethodGet, "/api/messages/conversations", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	convs := decode(t, w)["conversations"].([]interface{})
	require.Len(t, convs, 1)
	first := convs[0].(map[string]interface{})
	assert.Equal(t, "Priya", first["name"])
	assert.Equal(t, float64(2), first["unreadCount"])
}

func TestConversationHandler_ListEmptyIsArray(t *testing.T) {
	w := do(messagingRouter(&MockMessagingService{}, testUserID.Hex()), http.MethodGet, "/api/messages/conversations", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"conversations":[]}`, w.Body.String())
}

func TestConversationHandler_InvalidCaller(t *testing.T) {
	w := do(messagingRouter(&MockMessagingService{}, "not-an-id"), http.MethodGet, "/api/messages/conversations", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestConversationHandler_Create(t *testing.T) {
	tests := []struct {
		name    string
		created bool
		status  int
	}{
		{"new conversation", true, http.StatusCreated},
		{"existing conversation", false, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got messaging.StartParams
			svc := &MockMessagingService{
				FindOrCreateFunc: func(_ context.Context, _ primitive.ObjectID, p messaging.StartParams) (*messaging.StartResult, error) {
					got = p
					return &messaging.StartResult{ConversationID: "conv-1", Created: tt.created}, nil
				},
			}

			w := do(messagingRouter(svc, testUserID.Hex()), http.MethodPost, "/api/messages/conversations", map[string]string{
				"otherUserId":   "65f1a2b3c4d5e6f7a8b9c0d1",
				"otherUserName": "Priya",
			})

			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, "conv-1", decode(t, w)["conversationId"])
			assert.Equal(t, "65f1a2b3c4d5e6f7a8b9c0d1", got.OtherUserID)
			assert.Equal(t, "Priya", got.OtherUserName)
		})
	}
}

func TestMessagingHandlers_ErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		body   string
	}{
		{"invalid argument", &messaging.Error{Kind: messaging.ErrInvalidArgument, Message: "Message text is required"}, http.StatusBadRequest, `{"error":"Message text is required"}`},
		{"not found", &messaging.Error{Kind: messaging.ErrNotFound, Message: "Conversation not found"}, http.StatusNotFound, `{"error":"Conversation not found"}`},
		{"datastore failure", errors.New("connection reset by peer"), http.StatusInternalServerError, `{"error":"Server error"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &MockMessagingService{
				SendMessageFunc: func(context.Context, primitive.ObjectID, string, string) (*messaging.MessageView, error) {
					return nil, tt.err
				},
			}

			w := do(messagingRouter(svc, testUserID.Hex()), http.MethodPost, "/api/messages/conversations/abc", map[string]string{"text": "  "})

			assert.Equal(t, tt.status, w.Code)
			assert.JSONEq(t, tt.body, w.Body.String())
		})
	}
}

func TestMessageHandler_List(t *testing.T) {
	svc := &MockMessagingService{
		ListMessagesFunc: func(_ context.Context, _ primitive.ObjectID, conversationID string) ([]messaging.MessageView, error) {
			assert.Equal(t, "conv-1", conversationID)
			return []messaging.MessageView{
				{ID: "m1", Text: "Hi", IsMe: true, IsRead: true},
				{ID: "m2", Text: "Hello", IsMe: false, IsRead: true},
			}, nil
		},
	}

	w := do(messagingRouter(svc, testUserID.Hex()), http.MethodGet, "/api/messages/conversations/conv-1", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	msgs := decode(t, w)["messages"].([]interface{})
	require.Len(t, msgs, 2)
	assert.Equal(t, "Hi", msgs[0].(map[string]interface{})["text"])
	assert.Equal(t, true, msgs[0].(map[string]interface{})["isMe"])
}

func TestMessageHandler_Send(t *testing.T) {
	var gotText string
	svc := &MockMessagingService{
		SendMessageFunc: func(_ context.Context, _ primitive.ObjectID, _ string, text string) (*messaging.MessageView, error) {
			gotText = text
			return &messaging.MessageView{ID: "m1", Text: text, Sender: "Arjun", IsMe: true}, nil
		},
	}

	w := do(messagingRouter(svc, testUserID.Hex()), http.MethodPost, "/api/messages/conversations/conv-1", map[string]string{"text": "Is it still available?"})

	assert.Equal(t, http.StatusCreated, w.Code)
	body := decode(t, w)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "Is it still available?", body["message"].(map[string]interface{})["text"])
	assert.Equal(t, "Is it still available?", gotText)
}

func TestMessageHandler_SendMalformedBody(t *testing.T) {
	r := messagingRouter(&MockMessagingService{}, testUserID.Hex())
	req := httptest.NewRequest(http.MethodPost, "/api/messages/conversations/conv-1", bytes.NewBufferString("{not json"))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestConversationHandler_Delete(t *testing.T) {
	var deleted string
	svc := &MockMessagingService{
		DeleteFunc: func(_ context.Context, _ primitive.ObjectID, conversationID string) error {
			deleted = conversationID
			return nil
		},
	}

	w := do(messagingRouter(svc, testUserID.Hex()), http.MethodDelete, "/api/messages/conversations/conv-9", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"message":"Conversation deleted"}`, w.Body.String())
	assert.Equal(t, "conv-9", deleted)
}
