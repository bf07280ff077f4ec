package stream

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

func RegisterRoutes(r fiber.Router, hub *Hub) {
	r.Get("/ws/:runID", websocket.New(func(c *websocket.Conn) {
		client := hub.Register(c.Params("runID"))

		done := make(chan struct{})
		go func() {
			defer close(done)
			for msg := range client.Send {
				if err := c.WriteMessage(websocket.TextMessage, msg); err != nil {
					return
				}
			}
		}()

		// The read pump only notices the peer going away; subscribers
		// never send anything meaningful upstream.
		for {
			if _, _, err := c.ReadMessage(); err != nil {
				break
			}
		}

		// Unregister closes Send, which lets the write pump drain and exit.
		hub.Unregister(client)
		<-done
	}))
}
