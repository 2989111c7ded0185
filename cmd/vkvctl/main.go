// Command vkvctl is a thin manual-testing harness against the vkv
// embedding API: a trimmed cobra CLI, not a client reimplementation.
// Because vkv keeps everything in memory, every invocation of this
// binary works against a fresh, empty database — there is no file or
// directory argument naming where data lives. Use --seed to prepopulate
// keys before the requested operation runs.
package main

func main() {
	execute()
}
