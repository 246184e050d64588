package chessdto

// CreateGameResponse carries the only copy of the seat secrets.
type CreateGameResponse struct {
	ID          uint64 `json:"id"`
	WhiteSecret string `json:"white_secret"`
	BlackSecret string `json:"black_secret"`
}

type JoinRequest struct {
	Secret string `json:"secret"`
}

type MoveRequest struct {
	Move string `json:"move"`
}

type RoleResponse struct {
	ID   uint64 `json:"id"`
	Role string `json:"role"`
}

type ListResponse struct {
	Games  []GameView `json:"games"`
	Offset int        `json:"offset"`
	Limit  int        `json:"limit"`
}
