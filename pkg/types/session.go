package types

// Session — данные вошедшего пользователя. Создаётся внешним логин-потоком,
// здесь только читается и явно передаётся в каждую операцию.
type Session struct {
	UserID      uint64 `json:"userId"`
	CompanyID   uint64 `json:"companyId"`
	CompanyName string `json:"companyName"`
	Language    string `json:"language"`
}
