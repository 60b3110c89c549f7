// Package book builds the order-book read projection used by matching.
//
// A View is recomputed from storage on each matching attempt and holds no
// mutable state. Orders are indexed into price levels with FIFO queues so
// iteration follows price-time priority exactly: better price first, then
// earlier arrival.
package book
