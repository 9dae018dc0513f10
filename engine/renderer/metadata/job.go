package metadata

/**
 * @brief Describes a job to be run by the job system.
 */
type JobTask struct {
	/** @brief Data passed to OnStart. */
	InputParams interface{}
	/** @brief Does the work, sending its results on out. Required. */
	OnStart func(params interface{}, out chan<- interface{}) error
	/** @brief Invoked with the results when OnStart succeeded. Optional. */
	OnComplete func(results <-chan interface{})
	/** @brief Invoked with the error when OnStart failed. Optional. */
	OnFailure func(err error)
	/** @brief Invoked after either of the above. Optional. */
	OnCompletionCallback func()
}
