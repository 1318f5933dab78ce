package events

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// PayloadHash returns a stable hash of the event's business content. The body
// is first decoded into its typed variant, which drops volatile fields, then
// re-serialized; two deliveries that differ only in timestamps hash the same,
// while any change to price, quantity, financial status or fulfillable
// quantity produces a new hash.
func (e InboundEvent) PayloadHash() (string, error) {
	normalized, err := DecodePayload(e.Topic, e.Payload)
	if err != nil {
		return "", err
	}
	canonical, err := json.Marshal(normalized)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}

// IdempotencyKey fingerprints the event for deduplication. Identical
// (shop, topic, resource, normalized payload) tuples always produce the same
// key; any one differing field produces a different key.
func (e InboundEvent) IdempotencyKey() (string, error) {
	payloadHash, err := e.PayloadHash()
	if err != nil {
		return "", err
	}
	material := fmt.Sprintf("%s|%s|%s|%s", e.ShopID, e.Topic, e.ResourceID, payloadHash)
	sum := sha256.Sum256([]byte(material))
	return hex.EncodeToString(sum[:]), nil
}
