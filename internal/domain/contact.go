package domain

import (
	"time"
)

// Contact is a personal contact managed through the admin.
type Contact struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Name         string    `gorm:"column:nombre;size:100;not null" json:"name"`
	Email        string    `gorm:"column:correo;size:254;not null;index" json:"email"`
	Phone        string    `gorm:"column:telefono;size:20" json:"phone"`
	CreationDate time.Time `gorm:"column:fecha_creacion;index" json:"creation_date"`
}

// TableName specifies the table name for Contact
func (Contact) TableName() string {
	return "contactos"
}

// Column names, as referenced by the admin configuration and raw queries.
const (
	ContactColumnName         = "nombre"
	ContactColumnEmail        = "correo"
	ContactColumnPhone        = "telefono"
	ContactColumnCreationDate = "fecha_creacion"
)
