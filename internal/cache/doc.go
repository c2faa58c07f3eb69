// Package cache provides the Redis-backed answer cache. Answers are keyed
// by a hash of the normalized question so repeated questions skip the
// planner loop entirely.
package cache
