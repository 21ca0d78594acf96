package model

import "time"

// Admin is an operator account allowed to confirm and cancel bookings.
// Accounts are created out of band with the admin command.
//
// Fields:
//  ID           – primary key identifier.
//  Email        – unique login email.
//  PasswordHash – bcrypt hashed password.
//  Role         – role claim placed in issued tokens (ADMIN).
//  IsActive     – disabled accounts cannot log in.
//  CreatedAt    – timestamp of creation.
type Admin struct {
    ID           uint64    `db:"id"`
    Email        string    `db:"email"`
    PasswordHash string    `db:"password_hash"`
    Role         string    `db:"role"`
    IsActive     bool      `db:"is_active"`
    CreatedAt    time.Time `db:"created_at"`
}

// RoleAdmin is the only role accepted on the administrative surface.
const RoleAdmin = "ADMIN"
