// Package routing decides whether a hybrid chat request runs on the local
// model or the cloud tier, based on force flags, cloud availability, a
// complex-task keyword scan, and total conversation length.
package routing
