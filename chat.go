package main

// chat.go backs the floating assistant widget. The widget posts JSON here;
// the handler forwards to the backend AI endpoint and returns the reply with
// any recommended products. A backend failure yields the static apology
// line, never an error toast.

import (
	"encoding/json"
	"net/http"

	"github.com/sirupsen/logrus"
)

const chatFallbackReply = "抱歉，我現在有點累，請稍後再試..."

type chatRequest struct {
	Message string `json:"message"`
}

func (fe *frontendServer) chatHandler(w http.ResponseWriter, r *http.Request) {
	log := r.Context().Value(ctxKeyLog{}).(logrus.FieldLogger)
	sess := sessionFromContext(r.Context())

	w.Header().Set("Content-Type", "application/json")

	user, _ := sess.Auth.Snapshot()
	if user == nil {
		w.WriteHeader(http.StatusUnauthorized)
		writeChatReply(log, w, &ChatReply{Reply: "請先登入再使用智慧助手"})
		return
	}

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Message == "" {
		w.WriteHeader(http.StatusBadRequest)
		writeChatReply(log, w, &ChatReply{Reply: "請輸入訊息"})
		return
	}

	reply, err := fe.sendChatMessage(r.Context(), req.Message)
	if err != nil {
		log.WithField("error", err).Warn("chat backend failed")
		writeChatReply(log, w, &ChatReply{Reply: chatFallbackReply})
		return
	}
	writeChatReply(log, w, reply)
}

func writeChatReply(log logrus.FieldLogger, w http.ResponseWriter, reply *ChatReply) {
	if err := json.NewEncoder(w).Encode(reply); err != nil {
		log.Error(err)
	}
}
