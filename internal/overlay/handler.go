package overlay

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/dep2p/go-msgbox/pkg/types"
)

// maxSubmitSize 单笔交易大小上限
const maxSubmitSize = 1 << 20

type errorResponse struct {
	Status      string `json:"status"`
	Description string `json:"description"`
}

// NewHandler 将 Ledger 暴露为叠加网络 HTTP 服务
func NewHandler(l *Ledger) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /lookup", func(w http.ResponseWriter, r *http.Request) {
		var q types.LookupQuestion
		if err := json.NewDecoder(io.LimitReader(r.Body, maxSubmitSize)).Decode(&q); err != nil {
			writeError(w, http.StatusBadRequest, "invalid lookup question")
			return
		}
		answer, err := l.Lookup(r.Context(), q)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, answer)
	})
	mux.HandleFunc("POST /submit", func(w http.ResponseWriter, r *http.Request) {
		topics, err := parseTopics(r.Header.Get(TopicsHeader))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid "+TopicsHeader+" header")
			return
		}
		raw, err := io.ReadAll(io.LimitReader(r.Body, maxSubmitSize))
		if err != nil {
			writeError(w, http.StatusBadRequest, "failed to read transaction")
			return
		}
		result, err := l.Broadcast(r.Context(), raw, topics)
		if err != nil {
			logger.Warn("交易被拒绝", "err", err)
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, result)
	})
	return mux
}

// parseTopics 接受 JSON 数组或逗号分隔列表
func parseTopics(header string) ([]string, error) {
	header = strings.TrimSpace(header)
	if strings.HasPrefix(header, "[") {
		var topics []string
		if err := json.Unmarshal([]byte(header), &topics); err != nil {
			return nil, err
		}
		return topics, nil
	}
	var topics []string
	for _, t := range strings.Split(header, ",") {
		if t = strings.TrimSpace(t); t != "" {
			topics = append(topics, t)
		}
	}
	return topics, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, description string) {
	writeJSON(w, status, errorResponse{Status: types.StatusError, Description: description})
}
