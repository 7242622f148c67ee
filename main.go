// Newsportal serves a news article catalogue over a JSON REST API.
//
// Boot the server:
// ----------------
// $ NEWSPORTAL_DEV=true newsportal serve
//
// Client requests:
// ----------------
// $ curl http://localhost:3333/
// root.
//
// $ curl 'http://localhost:3333/api/articles?page=1&limit=2'
// {"articles":[...],"total":3,"page":1,"limit":2}
//
// $ curl -X POST -d '{"email":"demo@example.com","password":"password123"}' http://localhost:3333/api/auth/login
// {"user":{"id":1,...},"token":"eyJ..."}
//
// $ curl -H 'Authorization: Bearer eyJ...' -X DELETE http://localhost:3333/api/articles/1
// {"id":1,"title":...}
//
// $ curl -X POST http://localhost:9999/cache/flush
// {"flushed":4}
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
