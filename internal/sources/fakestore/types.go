package fakestore

import "github.com/shopspring/decimal"

// Product is an item of the /products catalog.
type Product struct {
	ID          int             `json:"id"`
	Title       string          `json:"title"`
	Price       decimal.Decimal `json:"price"`
	Description string          `json:"description"`
	Category    string          `json:"category"`
	Image       string          `json:"image"`
	Rating      *Rating         `json:"rating,omitempty"`
}

type Rating struct {
	Rate  decimal.Decimal `json:"rate"`
	Count int             `json:"count"`
}

// Cart is a shopping cart, treated as an order.
type Cart struct {
	ID       int        `json:"id"`
	UserID   int        `json:"userId"`
	Date     string     `json:"date"`
	Products []CartLine `json:"products"`
}

type CartLine struct {
	ProductID int `json:"productId"`
	Quantity  int `json:"quantity"`
}

// User is an account, treated as a delivery client.
type User struct {
	ID       int     `json:"id"`
	Email    string  `json:"email"`
	Username string  `json:"username"`
	Phone    string  `json:"phone"`
	Name     Name    `json:"name"`
	Address  Address `json:"address"`
}

type Name struct {
	First string `json:"firstname"`
	Last  string `json:"lastname"`
}

type Address struct {
	City        string      `json:"city"`
	Street      string      `json:"street"`
	Number      int         `json:"number"`
	Zipcode     string      `json:"zipcode"`
	Geolocation Geolocation `json:"geolocation"`
}

type Geolocation struct {
	Lat  string `json:"lat"`
	Long string `json:"long"`
}
