// Package refcrop crops reference images shown by image empties and keeps the
// result in sync with the object.
//
// The host calls three entry points:
//
//   - ApplyCrop: recompute the crop for an object and bind the output image.
//   - OnPropertyChanged (and the Set* commands that end in it): re-crop when
//     auto update is on.
//   - OnGraphSettled: after each scene update, adopt a newly bound image as
//     the object's source and reset its settings.
//
// Output images are named prefix + object + "_" + source, so the sync step can
// recognize them and never treat its own output as a new source.
package refcrop
