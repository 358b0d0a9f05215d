package models

type Category struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	Name     string `gorm:"size:100;not null;unique" json:"name"`
	Slug     string `gorm:"size:100;not null;unique" json:"slug"`
	Position int    `gorm:"default:0" json:"position"`
}

// All lists every persisted model in migration order.
func All() []interface{} {
	return []interface{}{
		&User{},
		&Category{},
		&Product{},
		&CartItem{},
		&WishlistItem{},
		&Order{},
		&SellerVerification{},
		&Post{},
		&Comment{},
		&PostLike{},
		&ChatRoom{},
		&ChatParticipant{},
		&Message{},
		&FeaturedSection{},
		&FeaturedItem{},
	}
}
