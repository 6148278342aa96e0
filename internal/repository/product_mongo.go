package repository

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/tuanvumaihuynh/inventory-service/internal/model"
	"github.com/tuanvumaihuynh/inventory-service/internal/storage/mongodb"
)

type mongoProduct struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	Name        string             `bson:"name"`
	Description string             `bson:"description"`
	Price       float64            `bson:"price"`
	Category    string             `bson:"category"`
	Stock       int                `bson:"stock"`
	IsActive    bool               `bson:"isActive"`
	CreatedAt   time.Time          `bson:"createdAt"`
	UpdatedAt   time.Time          `bson:"updatedAt"`
}

func (p mongoProduct) toModel() model.Product {
	return model.Product{
		ID:          p.ID.Hex(),
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price,
		Category:    model.Category(p.Category),
		Stock:       p.Stock,
		IsActive:    p.IsActive,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

var mongoSortFields = map[SortField]string{
	SortFieldName:      "name",
	SortFieldPrice:     "price",
	SortFieldStock:     "stock",
	SortFieldCategory:  "category",
	SortFieldCreatedAt: "createdAt",
	SortFieldUpdatedAt: "updatedAt",
}

type mongoProductRepository struct {
	collection *mongo.Collection
}

func NewMongoProductRepository(db *mongo.Database) ProductRepository {
	return &mongoProductRepository{
		collection: db.Collection(mongodb.ProductCollection),
	}
}

// mongoNow matches the millisecond precision BSON dates are stored with.
func mongoNow() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}

func parseObjectID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("%w: %q: %w", ErrInvalidID, id, err)
	}
	return oid, nil
}

func (r mongoProductRepository) CreateProduct(ctx context.Context, product model.Product) (model.Product, error) {
	now := mongoNow()
	doc := mongoProduct{
		ID:          primitive.NewObjectID(),
		Name:        product.Name,
		Description: product.Description,
		Price:       product.Price,
		Category:    string(product.Category),
		Stock:       product.Stock,
		IsActive:    product.IsActive,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if _, err := r.collection.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return model.Product{}, fmt.Errorf("insert product: %w: %w", ErrDuplicateName, err)
		}
		return model.Product{}, fmt.Errorf("insert product: %w", err)
	}

	return doc.toModel(), nil
}

func (r mongoProductRepository) ListProducts(ctx context.Context, params ListProductsParams) (ListProductsResult, error) {
	filter := mongoListFilter(params)

	total, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return ListProductsResult{}, fmt.Errorf("count products: %w", err)
	}

	direction := -1
	if params.SortOrder == SortOrderAsc {
		direction = 1
	}
	sortField, ok := mongoSortFields[params.SortBy]
	if !ok {
		sortField = "createdAt"
	}

	opts := options.Find().
		SetSort(bson.D{{Key: sortField, Value: direction}, {Key: "_id", Value: direction}}).
		SetSkip(int64(params.Skip())).
		SetLimit(int64(params.Limit))

	products, err := r.find(ctx, filter, opts)
	if err != nil {
		return ListProductsResult{}, err
	}

	return ListProductsResult{Products: products, Total: total}, nil
}

func (r mongoProductRepository) ListAllProducts(ctx context.Context) ([]model.Product, error) {
	return r.find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
}

func (r mongoProductRepository) GetProductByID(ctx context.Context, id string) (model.Product, error) {
	oid, err := parseObjectID(id)
	if err != nil {
		return model.Product{}, err
	}

	return r.findOne(ctx, bson.M{"_id": oid}, options.FindOne())
}

func (r mongoProductRepository) GetProductByName(ctx context.Context, name string) (model.Product, error) {
	opts := options.FindOne().SetCollation(mongodb.CaseInsensitiveCollation())
	return r.findOne(ctx, bson.M{"name": name}, opts)
}

func (r mongoProductRepository) UpdateProduct(ctx context.Context, id string, params UpdateProductParams) (model.Product, error) {
	oid, err := parseObjectID(id)
	if err != nil {
		return model.Product{}, err
	}

	set := bson.M{"updatedAt": mongoNow()}
	if params.Name != nil {
		set["name"] = *params.Name
	}
	if params.Description != nil {
		set["description"] = *params.Description
	}
	if params.Price != nil {
		set["price"] = *params.Price
	}
	if params.Category != nil {
		set["category"] = string(*params.Category)
	}
	if params.Stock != nil {
		set["stock"] = *params.Stock
	}

	return r.findOneAndUpdate(ctx, bson.M{"_id": oid}, bson.M{"$set": set})
}

func (r mongoProductRepository) SoftDeleteProduct(ctx context.Context, id string) (model.Product, error) {
	oid, err := parseObjectID(id)
	if err != nil {
		return model.Product{}, err
	}

	return r.findOneAndUpdate(ctx, bson.M{"_id": oid}, bson.M{
		"$set": bson.M{"isActive": false, "updatedAt": mongoNow()},
	})
}

func (r mongoProductRepository) HardDeleteProduct(ctx context.Context, id string) error {
	oid, err := parseObjectID(id)
	if err != nil {
		return err
	}

	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	if result.DeletedCount == 0 {
		return fmt.Errorf("delete product %s: %w", id, ErrNotFound)
	}

	return nil
}

func (r mongoProductRepository) ListProductsByCategory(ctx context.Context, category model.Category) ([]model.Product, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "name", Value: 1}}).
		SetCollation(mongodb.CaseInsensitiveCollation())

	return r.find(ctx, bson.M{"category": string(category), "isActive": true}, opts)
}

func (r mongoProductRepository) ListLowStockProducts(ctx context.Context, threshold int) ([]model.Product, error) {
	opts := options.Find().SetSort(bson.D{{Key: "stock", Value: 1}, {Key: "name", Value: 1}})

	return r.find(ctx, bson.M{
		"isActive": true,
		"stock":    bson.M{"$lte": threshold},
	}, opts)
}

func (r mongoProductRepository) IncrementStock(ctx context.Context, id string, delta int) (model.Product, error) {
	oid, err := parseObjectID(id)
	if err != nil {
		return model.Product{}, err
	}
	if delta < -MaxStock || delta > MaxStock {
		return model.Product{}, r.incrementFailure(ctx, oid, id, delta)
	}

	filter := bson.M{"_id": oid}
	switch {
	case delta < 0:
		filter["stock"] = bson.M{"$gte": -delta}
	case delta > 0:
		filter["stock"] = bson.M{"$lte": MaxStock - delta}
	}

	product, err := r.findOneAndUpdate(ctx, filter, bson.M{
		"$inc": bson.M{"stock": delta},
		"$set": bson.M{"updatedAt": mongoNow()},
	})
	if err == nil || !errors.Is(err, ErrNotFound) || delta == 0 {
		return product, err
	}

	return model.Product{}, r.incrementFailure(ctx, oid, id, delta)
}

// incrementFailure tells a missing product from a stock bound.
func (r mongoProductRepository) incrementFailure(ctx context.Context, oid primitive.ObjectID, id string, delta int) error {
	count, err := r.collection.CountDocuments(ctx, bson.M{"_id": oid}, options.Count().SetLimit(1))
	if err != nil {
		return fmt.Errorf("count product: %w", err)
	}
	if count == 0 {
		return fmt.Errorf("increment stock %s: %w", id, ErrNotFound)
	}
	return fmt.Errorf("increment stock %s by %d: %w", id, delta, stockBoundErr(delta))
}

func (r mongoProductRepository) ExistsByName(ctx context.Context, name string, excludeID string) (bool, error) {
	filter := bson.M{"name": name}
	if excludeID != "" {
		oid, err := parseObjectID(excludeID)
		if err != nil {
			return false, err
		}
		filter["_id"] = bson.M{"$ne": oid}
	}

	count, err := r.collection.CountDocuments(ctx, filter, options.Count().
		SetCollation(mongodb.CaseInsensitiveCollation()).
		SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("count products by name: %w", err)
	}

	return count > 0, nil
}

func (r mongoProductRepository) findOne(ctx context.Context, filter bson.M, opts *options.FindOneOptions) (model.Product, error) {
	var doc mongoProduct
	if err := r.collection.FindOne(ctx, filter, opts).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return model.Product{}, fmt.Errorf("find product: %w", ErrNotFound)
		}
		return model.Product{}, fmt.Errorf("find product: %w", err)
	}

	return doc.toModel(), nil
}

func (r mongoProductRepository) findOneAndUpdate(ctx context.Context, filter bson.M, update bson.M) (model.Product, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var doc mongoProduct
	if err := r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return model.Product{}, fmt.Errorf("update product: %w", ErrNotFound)
		}
		if mongo.IsDuplicateKeyError(err) {
			return model.Product{}, fmt.Errorf("update product: %w: %w", ErrDuplicateName, err)
		}
		return model.Product{}, fmt.Errorf("update product: %w", err)
	}

	return doc.toModel(), nil
}

func (r mongoProductRepository) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]model.Product, error) {
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("find products: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []mongoProduct
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode products: %w", err)
	}

	products := make([]model.Product, 0, len(docs))
	for _, doc := range docs {
		products = append(products, doc.toModel())
	}

	return products, nil
}

func mongoListFilter(params ListProductsParams) bson.M {
	filter := bson.M{}

	if params.Category != nil {
		filter["category"] = string(*params.Category)
	}
	if params.IsActive != nil {
		filter["isActive"] = *params.IsActive
	}

	price := bson.M{}
	if params.MinPrice != nil {
		price["$gte"] = *params.MinPrice
	}
	if params.MaxPrice != nil {
		price["$lte"] = *params.MaxPrice
	}
	if len(price) > 0 {
		filter["price"] = price
	}

	if params.Search != "" {
		pattern := primitive.Regex{Pattern: regexp.QuoteMeta(params.Search), Options: "i"}
		filter["$or"] = bson.A{
			bson.M{"name": pattern},
			bson.M{"description": pattern},
		}
	}

	return filter
}
