package jigsaw

// ProjectExpertGroups строит по одной экспертной группе на тему.
// Участники - все студенты с этой темой в порядке списка студентов.
// Студенты с неизвестной темой не попадают ни в одну группу.
func ProjectExpertGroups(students []Student, topics []Topic, factory GroupFactory) []Group {
	groups := make([]Group, 0, len(topics))
	for _, t := range topics {
		g := factory.expert(t)
		for _, s := range students {
			if s.HasTopic(t.ID) {
				g.StudentIDs = append(g.StudentIDs, s.ID)
			}
		}
		groups = append(groups, g)
	}
	return groups
}
