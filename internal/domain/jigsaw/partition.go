package jigsaw

// HomeGroupCount возвращает число домашних групп: max(1, floor(S / T)).
// Для T == 0 возвращает 0.
func HomeGroupCount(studentCount, topicCount int) int {
	if topicCount <= 0 {
		return 0
	}
	n := studentCount / topicCount
	if n < 1 {
		return 1
	}
	return n
}

// PartitionHomeGroups разбивает студентов с назначенными темами на домашние группы.
//
// Алгоритм жадный и однопроходный:
//
//  1. Студенты раскладываются по корзинам тем в порядке назначения.
//  2. Основной проход: для каждой группы g и каждой темы в порядке объявления
//     из конца корзины темы берётся один студент.
//  3. Остаток: оставшиеся студенты по одному уходят в первую группу
//     с минимальным числом участников.
//
// Студенты с пустой или неизвестной темой попадают в отдельную корзину,
// которая раздаётся последней на шаге остатка.
//
// Возвращает nil, если список студентов или тем пуст.
func PartitionHomeGroups(students []Student, topics []Topic, factory GroupFactory) []Group {
	if len(students) == 0 || len(topics) == 0 {
		return nil
	}

	numGroups := HomeGroupCount(len(students), len(topics))
	groups := make([]Group, numGroups)
	for i := range groups {
		groups[i] = factory.home(i)
	}

	buckets := make(map[string][]string, len(topics))
	for _, t := range topics {
		buckets[t.ID] = []string{}
	}
	var unassigned []string
	for _, s := range students {
		if bucket, ok := buckets[s.AssignedTopicID]; ok {
			buckets[s.AssignedTopicID] = append(bucket, s.ID)
			continue
		}
		unassigned = append(unassigned, s.ID)
	}

	// Основной проход: по одному представителю каждой темы.
	for g := range groups {
		for _, t := range topics {
			id, ok := pop(buckets, t.ID)
			if !ok {
				continue
			}
			groups[g].StudentIDs = append(groups[g].StudentIDs, id)
		}
	}

	// Остаток: в наименее заполненную группу.
	for _, t := range topics {
		for {
			id, ok := pop(buckets, t.ID)
			if !ok {
				break
			}
			target := smallestGroup(groups)
			groups[target].StudentIDs = append(groups[target].StudentIDs, id)
		}
	}
	for i := len(unassigned) - 1; i >= 0; i-- {
		target := smallestGroup(groups)
		groups[target].StudentIDs = append(groups[target].StudentIDs, unassigned[i])
	}

	return groups
}

// pop снимает последний элемент корзины.
func pop(buckets map[string][]string, key string) (string, bool) {
	bucket := buckets[key]
	if len(bucket) == 0 {
		return "", false
	}
	last := bucket[len(bucket)-1]
	buckets[key] = bucket[:len(bucket)-1]
	return last, true
}

// smallestGroup возвращает индекс первой группы с минимальным размером.
func smallestGroup(groups []Group) int {
	best := 0
	for i := 1; i < len(groups); i++ {
		if groups[i].Size() < groups[best].Size() {
			best = i
		}
	}
	return best
}
