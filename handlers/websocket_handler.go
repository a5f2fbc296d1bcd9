package handlers

import (
	"log/slog"
	"net/http"

	"github.com/Dosada05/fishing-tournament/live"
	"github.com/Dosada05/fishing-tournament/services"
	"github.com/gorilla/websocket"
)

type LeaderboardHandler struct {
	leaderboardService services.LeaderboardService
	hub                *live.Hub
	upgrader           websocket.Upgrader
}

// NewLeaderboardHandler. allowedOrigins ограничивает Origin websocket-подключений;
// пустой список разрешает любой Origin.
func NewLeaderboardHandler(ls services.LeaderboardService, hub *live.Hub, allowedOrigins []string) *LeaderboardHandler {
	origins := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		origins[o] = true
	}
	return &LeaderboardHandler{
		leaderboardService: ls,
		hub:                hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || len(origins) == 0 || origins[origin] || origins["*"]
			},
		},
	}
}

// Get обрабатывает публичный GET /tournaments/leaderboard/{link}
func (h *LeaderboardHandler) Get(w http.ResponseWriter, r *http.Request) {
	link, err := linkFromURL(r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	board, err := h.leaderboardService.GetByLink(r.Context(), link)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"leaderboard": board}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// ServeWs подключает клиента к живой таблице лидеров: /ws/leaderboard/{link}.
// Первым сообщением клиент получает текущий снимок таблицы.
func (h *LeaderboardHandler) ServeWs(w http.ResponseWriter, r *http.Request) {
	link, err := linkFromURL(r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	board, err := h.leaderboardService.GetByLink(r.Context(), link)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade сам отвечает клиенту ошибкой.
		slog.WarnContext(r.Context(), "failed to upgrade websocket connection", slog.Any("error", err))
		return
	}

	room := live.LeaderboardRoom(board.TournamentID)
	client := live.NewClient(h.hub, conn, room)
	if err := client.Queue(live.Message{Type: live.MessageLeaderboardUpdated, Payload: board, RoomID: room}); err != nil {
		slog.WarnContext(r.Context(), "failed to queue leaderboard snapshot", slog.Any("error", err))
	}
	h.hub.Join(client)
}
