package labeling

// Round sizes grow so that the normal round seated after a successful
// appeal holds the previous normal round's validators plus the appeal's,
// minus the ousted leader: NormalRoundSizes[k+1] = NormalRoundSizes[k] +
// AppealRoundSizes[k] - 1 for every entry but the last, which caps both
// tables at 1000. Beyond the tables the last value saturates.
var (
	NormalRoundSizes = []int{5, 11, 23, 47, 95, 191, 383, 767, 1000}
	AppealRoundSizes = []int{7, 13, 25, 49, 97, 193, 385, 769, 1000}
)

// NormalRoundSize returns the size of the k-th normal round.
func NormalRoundSize(k int) int {
	if k < len(NormalRoundSizes) {
		return NormalRoundSizes[k]
	}
	return NormalRoundSizes[len(NormalRoundSizes)-1]
}

// AppealRoundSize returns the size of the k-th appeal round.
func AppealRoundSize(k int) int {
	if k < len(AppealRoundSizes) {
		return AppealRoundSizes[k]
	}
	return AppealRoundSizes[len(AppealRoundSizes)-1]
}

// AppealIndex returns the position of round i within the sequence of
// appeal rounds: the count of appeal-labeled rounds before it.
func AppealIndex(labels []Label, i int) int {
	count := 0
	for j := 0; j < i && j < len(labels); j++ {
		if labels[j].IsAppeal() {
			count++
		}
	}
	return count
}

// NormalIndex returns the position of round i within the sequence of
// non-appeal rounds.
func NormalIndex(labels []Label, i int) int {
	count := 0
	for j := 0; j < i && j < len(labels); j++ {
		if !labels[j].IsAppeal() {
			count++
		}
	}
	return count
}

// RoundSize returns the table size of round i given the final labels.
func RoundSize(labels []Label, i int) int {
	if labels[i].IsAppeal() {
		return AppealRoundSize(AppealIndex(labels, i))
	}
	return NormalRoundSize(NormalIndex(labels, i))
}
