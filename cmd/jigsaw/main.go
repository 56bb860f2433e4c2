// Package main - точка входа jigsaw-mixer.
//
// jigsaw-mixer ведёт урок по методу "пила": учитель задаёт темы и список
// класса, сервис раздаёт темы, собирает домашние группы так, чтобы в каждой
// были эксперты по разным темам, и переключает класс между фазами урока.
//
// Команды:
//   - serve    - HTTP API для интерфейса учителя и экранов в классе
//   - generate - разовое распределение по группам в терминале
package main

import (
	"context"
	"fmt"
	"os"
)

func main() {
	if err := Execute(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "fatal error: %v\n", err)
		os.Exit(1)
	}
}
