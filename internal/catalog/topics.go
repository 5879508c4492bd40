package catalog

import "strconv"

const (
	TopicPriceUpdated = "catalog.price.updated"
)

// Partition key = product_id, so all events for one product stay ordered.
func PartitionKey(productID int64) []byte {
	return []byte(strconv.FormatInt(productID, 10))
}
