package mq

// Attribute keys set by publishers of catalog events. Backends use them for
// routing and ordering.
const (
	AttrType       = "type"
	AttrCategoryID = "category_id"
)
