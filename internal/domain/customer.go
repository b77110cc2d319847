package domain

import "time"

// Customer is an end-user identified by their sending address.
// Created lazily on the first message from an unseen sender.
type Customer struct {
	ID        string
	Email     string
	Name      string
	Phone     *string
	CreatedAt time.Time
}
