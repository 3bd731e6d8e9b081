// internal/domain/catalog/dto.go
package catalog

type CreateServiceRequest struct {
	Name         string       `json:"name" binding:"required"`
	Description  string       `json:"description" binding:"required"`
	Price        *float64     `json:"price" binding:"required,min=0"`
	Category     Category     `json:"category" binding:"required,oneof=gaming music quiz"`
	BillingCycle BillingCycle `json:"billingCycle" binding:"required,oneof=daily weekly monthly"`
}

type ListFilters struct {
	Categories []Category
}
