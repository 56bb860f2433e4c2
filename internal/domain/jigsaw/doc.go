// Package jigsaw содержит доменную модель занятия по методу "пазл" (jigsaw).
//
// Класс делится на домашние группы, каждый участник домашней группы получает
// одну экспертную тему. Затем ученики собираются в экспертные группы по темам
// и возвращаются домой, чтобы научить остальных. Пакет определяет:
//
//   - Сущности: Topic, Student, Group, Session
//   - Алгоритмы: AssignTopics, PartitionHomeGroups, ProjectExpertGroups
//   - Машину этапов: Phase, State, Transition
//   - Интерфейс хранилища: Store
//
// # Архитектурные принципы
//
//  1. Нулевые внешние зависимости - только стандартная библиотека Go
//  2. Источники случайности и идентификаторов внедряются (Shuffler, IDGenerator)
//  3. Все операции тотальны: пустой ввод и неизвестные id дают no-op
//
// # Распределение
//
//	session := jigsaw.NewSession(
//	    jigsaw.WithIDGenerator(uuid.NewString),
//	    jigsaw.WithShuffler(jigsaw.NewSeededShuffler(42)),
//	)
//	session.AddTopic("Фотосинтез")
//	session.AddTopic("Дыхание")
//	session.ImportStudents(jigsaw.ParseNames("Аня, Боря, Вика, Гена"))
//	session.GenerateGroups() // HOME_GROUPS, снимок сохранён
//
// # Этапы
//
//	SETUP -> HOME_GROUPS -> EXPERT_GROUPS -> TEACHING
//
// Вход в EXPERT_GROUPS пересобирает группы по темам, переход
// EXPERT_GROUPS -> TEACHING восстанавливает снимок домашних групп.
package jigsaw
