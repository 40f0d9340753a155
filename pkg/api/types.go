package api

// RegisterPlayerRequest creates a new account.
type RegisterPlayerRequest struct {
	Name string `json:"name"`
}

// SubmitOrderRequest is the wire form of a trading request.
type SubmitOrderRequest struct {
	PlayerID string  `json:"playerId"`
	Type     string  `json:"type"` // "market" or "limit"
	Side     string  `json:"side"` // "BUY" or "SELL"
	Price    float64 `json:"price,omitempty"`
	Quantity float64 `json:"quantity"`
}

// CancelOrdersRequest cancels specific orders, or all when Ids is empty.
type CancelOrdersRequest struct {
	PlayerID string  `json:"playerId"`
	Ids      []int64 `json:"ids,omitempty"`
}

// PushNewsRequest shifts the fair-value target.
type PushNewsRequest struct {
	Delta float64 `json:"delta"`
	Text  string  `json:"text,omitempty"`
}

// SetModeRequest switches the price process.
type SetModeRequest struct {
	Mode string `json:"mode"` // "orderflow" or "news"
}

// ErrorResponse is the structured error body.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// WSSubscribeRequest is the client->server subscription message.
type WSSubscribeRequest struct {
	Op       string   `json:"op"` // "subscribe" or "unsubscribe"
	Channels []string `json:"channels"`
}

// WSMessage wraps every server->client broadcast.
type WSMessage struct {
	Channel string `json:"channel"`
	Data    any    `json:"data"`
}
