package model

import "time"

// Purchase is a durable grant letting a user access an item, created once
// after its on-chain payment has been verified.
type Purchase struct {
	ID            string    `json:"id"`
	UserID        string    `json:"userId"`
	ItemID        int64     `json:"itemId"`
	ContentID     string    `json:"contentId"`
	ItemName      string    `json:"itemName"`
	ItemPrice     string    `json:"itemPrice"`
	TxHash        string    `json:"txHash"`
	WalletAddress string    `json:"walletAddress,omitempty"`
	PurchasedAt   time.Time `json:"purchasedAt"`
}

// PurchaseRequest is the API request body for verifying a purchase.
type PurchaseRequest struct {
	TxHash        string `json:"txHash"`
	ItemID        int64  `json:"itemId"`
	ContentID     string `json:"contentId"`
	ItemName      string `json:"itemName"`
	ItemPrice     string `json:"itemPrice"`
	WalletAddress string `json:"walletAddress,omitempty"`
}

// PurchaseResponse is the API response after a successful verification.
type PurchaseResponse struct {
	Success          bool      `json:"success"`
	AlreadyPurchased bool      `json:"alreadyPurchased"`
	Purchase         *Purchase `json:"purchase"`
}

// PurchaseListResponse lists a user's purchases, newest first.
type PurchaseListResponse struct {
	Purchases []Purchase `json:"purchases"`
}
