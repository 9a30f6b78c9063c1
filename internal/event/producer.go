package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/curatedcode/toshi-sub000/internal/domain"
	pkgkafka "github.com/curatedcode/toshi-sub000/pkg/kafka"
)

// Kafka topic constants for storefront domain events.
const (
	TopicProductCreated = "storefront.product.created"
	TopicProductUpdated = "storefront.product.updated"
	TopicProductDeleted = "storefront.product.deleted"
	TopicReviewCreated  = "storefront.review.created"
	TopicCartUpdated    = "storefront.cart.updated"
	TopicCartCleared    = "storefront.cart.cleared"
	TopicOrderCreated   = "storefront.order.created"
)

// Aggregate type constants.
const (
	AggregateTypeProduct = "product"
	AggregateTypeReview  = "review"
	AggregateTypeCart    = "cart"
	AggregateTypeOrder   = "order"
)

// Source identifier for events originating from the storefront.
const SourceStorefront = "storefront"

// ProductEventData is the payload for product.created and product.updated events.
type ProductEventData struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	Description string `json:"description"`
	CompanyID   string `json:"company_id"`
	Price       string `json:"price"`
	Quantity    int    `json:"quantity"`
}

// ProductDeletedData is the payload for a product.deleted event.
type ProductDeletedData struct {
	ID string `json:"id"`
}

// ReviewCreatedData is the payload for a review.created event.
type ReviewCreatedData struct {
	ID        string  `json:"id"`
	ProductID string  `json:"product_id"`
	UserID    string  `json:"user_id"`
	Rating    float64 `json:"rating"`
}

// CartUpdatedData is the payload for a cart.updated event.
type CartUpdatedData struct {
	UserID    string `json:"user_id"`
	ItemCount int    `json:"item_count"`
	Subtotal  string `json:"subtotal"`
}

// CartClearedData is the payload for a cart.cleared event.
type CartClearedData struct {
	UserID string `json:"user_id"`
}

// OrderCreatedData is the payload for an order.created event.
type OrderCreatedData struct {
	ID        string `json:"id"`
	UserID    string `json:"user_id"`
	Status    string `json:"status"`
	Subtotal  string `json:"subtotal"`
	Tax       string `json:"tax"`
	Total     string `json:"total"`
	ItemCount int    `json:"item_count"`
}

// Producer publishes storefront domain events to Kafka.
type Producer struct {
	kafka  *pkgkafka.Producer
	logger *slog.Logger
}

// NewProducer creates a new event producer.
func NewProducer(kafka *pkgkafka.Producer, logger *slog.Logger) *Producer {
	return &Producer{
		kafka:  kafka,
		logger: logger,
	}
}

func productEventData(p *domain.Product) ProductEventData {
	return ProductEventData{
		ID:          p.ID,
		Name:        p.Name,
		Slug:        p.Slug,
		Description: p.Description,
		CompanyID:   p.CompanyID,
		Price:       p.Price.StringFixed(2),
		Quantity:    p.Quantity,
	}
}

// PublishProductCreated publishes a product.created event.
func (p *Producer) PublishProductCreated(ctx context.Context, product *domain.Product) error {
	event, err := pkgkafka.NewEvent(TopicProductCreated, product.ID, AggregateTypeProduct, SourceStorefront, productEventData(product))
	if err != nil {
		return fmt.Errorf("create product.created event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicProductCreated, event); err != nil {
		return fmt.Errorf("publish product.created event: %w", err)
	}

	p.logger.DebugContext(ctx, "published product.created event",
		slog.String("product_id", product.ID),
		slog.String("slug", product.Slug),
	)

	return nil
}

// PublishProductUpdated publishes a product.updated event.
func (p *Producer) PublishProductUpdated(ctx context.Context, product *domain.Product) error {
	event, err := pkgkafka.NewEvent(TopicProductUpdated, product.ID, AggregateTypeProduct, SourceStorefront, productEventData(product))
	if err != nil {
		return fmt.Errorf("create product.updated event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicProductUpdated, event); err != nil {
		return fmt.Errorf("publish product.updated event: %w", err)
	}

	p.logger.DebugContext(ctx, "published product.updated event",
		slog.String("product_id", product.ID),
		slog.String("slug", product.Slug),
	)

	return nil
}

// PublishProductDeleted publishes a product.deleted event.
func (p *Producer) PublishProductDeleted(ctx context.Context, id string) error {
	event, err := pkgkafka.NewEvent(TopicProductDeleted, id, AggregateTypeProduct, SourceStorefront, ProductDeletedData{ID: id})
	if err != nil {
		return fmt.Errorf("create product.deleted event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicProductDeleted, event); err != nil {
		return fmt.Errorf("publish product.deleted event: %w", err)
	}

	p.logger.DebugContext(ctx, "published product.deleted event",
		slog.String("product_id", id),
	)

	return nil
}

// PublishReviewCreated publishes a review.created event.
func (p *Producer) PublishReviewCreated(ctx context.Context, review *domain.Review) error {
	data := ReviewCreatedData{
		ID:        review.ID,
		ProductID: review.ProductID,
		UserID:    review.UserID,
		Rating:    review.Rating,
	}

	event, err := pkgkafka.NewEvent(TopicReviewCreated, review.ID, AggregateTypeReview, SourceStorefront, data)
	if err != nil {
		return fmt.Errorf("create review.created event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicReviewCreated, event); err != nil {
		return fmt.Errorf("publish review.created event: %w", err)
	}

	p.logger.DebugContext(ctx, "published review.created event",
		slog.String("review_id", review.ID),
		slog.String("product_id", review.ProductID),
	)

	return nil
}

// PublishCartUpdated publishes a cart.updated event.
func (p *Producer) PublishCartUpdated(ctx context.Context, cart *domain.Cart) error {
	data := CartUpdatedData{
		UserID:    cart.UserID,
		ItemCount: cart.ItemCount(),
		Subtotal:  cart.Subtotal().StringFixed(2),
	}

	event, err := pkgkafka.NewEvent(TopicCartUpdated, cart.UserID, AggregateTypeCart, SourceStorefront, data)
	if err != nil {
		return fmt.Errorf("create cart.updated event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicCartUpdated, event); err != nil {
		return fmt.Errorf("publish cart.updated event: %w", err)
	}

	p.logger.DebugContext(ctx, "published cart.updated event",
		slog.String("user_id", cart.UserID),
	)

	return nil
}

// PublishCartCleared publishes a cart.cleared event.
func (p *Producer) PublishCartCleared(ctx context.Context, userID string) error {
	event, err := pkgkafka.NewEvent(TopicCartCleared, userID, AggregateTypeCart, SourceStorefront, CartClearedData{UserID: userID})
	if err != nil {
		return fmt.Errorf("create cart.cleared event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicCartCleared, event); err != nil {
		return fmt.Errorf("publish cart.cleared event: %w", err)
	}

	p.logger.DebugContext(ctx, "published cart.cleared event",
		slog.String("user_id", userID),
	)

	return nil
}

// PublishOrderCreated publishes an order.created event.
func (p *Producer) PublishOrderCreated(ctx context.Context, order *domain.Order) error {
	data := OrderCreatedData{
		ID:        order.ID,
		UserID:    order.UserID,
		Status:    order.Status,
		Subtotal:  order.Subtotal.StringFixed(2),
		Tax:       order.Tax.StringFixed(2),
		Total:     order.Total.StringFixed(2),
		ItemCount: order.ItemCount(),
	}

	event, err := pkgkafka.NewEvent(TopicOrderCreated, order.ID, AggregateTypeOrder, SourceStorefront, data)
	if err != nil {
		return fmt.Errorf("create order.created event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicOrderCreated, event); err != nil {
		return fmt.Errorf("publish order.created event: %w", err)
	}

	p.logger.DebugContext(ctx, "published order.created event",
		slog.String("order_id", order.ID),
		slog.String("user_id", order.UserID),
	)

	return nil
}
