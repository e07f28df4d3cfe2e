package main

import (
	"github.com/expensio/expensio/app"
)

func main() {
	app.New(nil).Run()
}
