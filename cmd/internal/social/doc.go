// Package social is the follow graph: a set of directed edges
// follower -> followed between users, with no self-edges and no duplicates.
//
// Follow and Unfollow are idempotent. Repeating either leaves the graph as a
// single call would, and neither fails because the edge already is (or is
// not) there. Queries are explicit functions rather than live collections.
package social
