// Команда seeder выгружает, проверяет и заливает данные маркетплейса платформы
package main

import (
	"context"
	"os"
)

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}
