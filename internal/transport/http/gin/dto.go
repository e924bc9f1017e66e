package httpgin

type BookingRequest struct {
	Name         string `json:"name" binding:"required"`
	Email        string `json:"email" binding:"required,email"`
	Phone        string `json:"phone"`
	Street       string `json:"street"`
	PostalCode   string `json:"postal_code"`
	City         string `json:"city"`
	Message      string `json:"message"`
	DiscountTier bool   `json:"discount_tier"`
}

type BookingResponse struct {
	Status           string `json:"status"`
	WaitlistPosition int    `json:"waitlist_position,omitempty"`
	SessionID        string `json:"session_id,omitempty"`
	RedirectURL      string `json:"redirect_url,omitempty"`
}

type ShowCheckoutRequest struct {
	Name         string `json:"name" binding:"required"`
	Email        string `json:"email" binding:"required,email"`
	Quantity     int    `json:"quantity" binding:"required,gt=0"`
	DiscountTier bool   `json:"discount_tier"`
	PromoCode    string `json:"promo_code"`
}

type CheckoutResponse struct {
	SessionID   string `json:"session_id"`
	RedirectURL string `json:"redirect_url"`
}

type ConfirmRequest struct {
	SessionID string `json:"session_id" binding:"required"`
}

type ConfirmResponse struct {
	Paid             bool   `json:"paid"`
	AlreadyProcessed bool   `json:"already_processed"`
	TicketCode       string `json:"ticket_code,omitempty"`
}

type SubscribeRequest struct {
	Email string `json:"email" binding:"required"`
	Name  string `json:"name"`
}

type ScanRequest struct {
	TicketCode string `json:"ticket_code" binding:"required"`
}

type ScanResponse struct {
	Admitted     bool   `json:"admitted"`
	AlreadyUsed  bool   `json:"already_used"`
	FirstScanned string `json:"first_scanned,omitempty"`
	HolderName   string `json:"holder_name"`
	Quantity     int    `json:"quantity"`
	ShowID       int64  `json:"show_id"`
}

type CourseRequest struct {
	Slug               string `json:"slug" binding:"required"`
	Title              string `json:"title" binding:"required"`
	ParticipantTable   string `json:"participant_table"`
	MaxParticipants    *int   `json:"max_participants"`
	PriceCents         int    `json:"price_cents"`
	DiscountPriceCents *int   `json:"discount_price_cents"`
	Active             bool   `json:"active"`
}

type ShowRequest struct {
	Slug               string `json:"slug" binding:"required"`
	Title              string `json:"title" binding:"required"`
	MaxTickets         *int   `json:"max_tickets"`
	PriceCents         int    `json:"price_cents"`
	DiscountPriceCents *int   `json:"discount_price_cents"`
	Active             bool   `json:"active"`
}

type DiscountCodeRequest struct {
	Code       string `json:"code" binding:"required"`
	Type       string `json:"type" binding:"required,oneof=percentage fixed"`
	Amount     int    `json:"amount" binding:"required,gt=0"`
	ValidFrom  string `json:"valid_from"`
	ValidUntil string `json:"valid_until"`
	MaxUses    *int   `json:"max_uses"`
}

type ParticipantRequest struct {
	Name       string `json:"name" binding:"required"`
	Email      string `json:"email" binding:"required,email"`
	Phone      string `json:"phone"`
	Street     string `json:"street"`
	PostalCode string `json:"postal_code"`
	City       string `json:"city"`
	Message    string `json:"message"`
}

type MoveParticipantRequest struct {
	ToCourseID int64 `json:"to_course_id" binding:"required"`
}

type PromotionRequest struct {
	DiscountTier bool `json:"discount_tier"`
}

type PromotionResponse struct {
	Promoted        bool   `json:"promoted"`
	RequiresPayment bool   `json:"requires_payment"`
	SessionID       string `json:"session_id,omitempty"`
	RedirectURL     string `json:"redirect_url,omitempty"`
}

type ResendResponse struct {
	Resends int `json:"resends"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
