package dbmap

func Map[In any, Out any](list []In, mapFn func(val In) Out) []Out {
	newSlice := make([]Out, len(list))
	for i, val := range list {
		newSlice[i] = mapFn(val)
	}

	return newSlice
}

func Filter[T any](slice []T, filterFunc func(val T) bool) []T {
	var newSlice []T
	for i, val := range slice {
		if filterFunc(val) {
			newSlice = append(newSlice, slice[i])
		}
	}

	return newSlice
}

func SliceContains[T comparable](list []T, val T) bool {
	for _, item := range list {
		if item == val {
			return true
		}
	}

	return false
}

// SplitBatch cuts a slice into chunks of at most size elements.
func SplitBatch[T any](list []T, size int) [][]T {
	if size <= 0 || len(list) == 0 {
		return nil
	}

	var batches [][]T
	for size < len(list) {
		list, batches = list[size:], append(batches, list[:size:size])
	}

	return append(batches, list)
}
