package playlists

import (
	"github.com/gofiber/fiber/v2"
)

// RegisterRoutes registers the routes for the playlists feature.
func RegisterRoutes(router fiber.Router, service *Service) {
	handler := NewHandler(service)

	playlists := router.Group("/playlists")
	playlists.Get("/", handler.GetPlaylists)
	playlists.Post("/", handler.CreatePlaylist)
	playlists.Post("/fetch", handler.FetchPlaylist)
	playlists.Get("/:id", handler.GetPlaylist)
	playlists.Patch("/:id", handler.UpdatePlaylist)
	playlists.Put("/:id", handler.UpdatePlaylist)
	playlists.Delete("/:id", handler.DeletePlaylist)
	playlists.Get("/:id/content", handler.GetPlaylistContent)
}
