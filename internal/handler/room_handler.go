/*
Package handler provides HTTP handler functions for inspecting live rooms.
*/
package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"roomrelay/internal/app/chat"
	"roomrelay/internal/pkg/errs"
	"roomrelay/internal/pkg/resp"
)

// HandleListRooms reports every room that currently has members.
func HandleListRooms(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rooms := deps.Dispatcher.Registry().Rooms()

		resp.RespondSuccess(w, r, map[string]any{
			"rooms":       rooms,
			"total":       len(rooms),
			"connections": deps.Dispatcher.ConnectionCount(),
		})
	}
}

// HandleGetRoom reports the member count of one room.
func HandleGetRoom(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		roomID := chat.NormalizeRoomID(chi.URLParam(r, "roomId"))

		registry := deps.Dispatcher.Registry()
		if !registry.HasRoom(roomID) {
			resp.RespondError(w, r, errs.NewError(errs.ErrRoomNotFound))
			return
		}

		resp.RespondSuccess(w, r, map[string]any{
			"roomId":  roomID,
			"members": len(registry.MembersOf(roomID)),
		})
	}
}
